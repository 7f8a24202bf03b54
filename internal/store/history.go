package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agentarena/agentarena/internal/compare"
)

// ErrNotFound is returned when a batch ID does not exist.
var ErrNotFound = errors.New("store: batch not found")

// BatchSummary is one row of the history listing.
type BatchSummary struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Region    string    `json:"region"`
	StartedAt time.Time `json:"startedAt"`
	Agents    int       `json:"agents"`
	Failures  int       `json:"failures"`
}

// HistoryStore persists comparison batches.
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a history store using the given database.
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// SaveBatch writes a batch and all of its results in one transaction.
func (s *HistoryStore) SaveBatch(b *compare.Batch) error {
	tx, err := s.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO batches (id, prompt, region, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Prompt, b.Region,
		b.StartedAt.UTC().Format(time.RFC3339Nano),
		b.Duration.Milliseconds(),
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("inserting batch: %w", err)
	}

	for name, r := range b.Results {
		_, err = tx.Exec(
			`INSERT INTO results (batch_id, agent_name, success, model, response, error, timestamp, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, name, boolToInt(r.Success), r.Model, r.Response, r.Error,
			r.Timestamp.UTC().Format(time.RFC3339Nano),
			r.Duration.Milliseconds(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting result for %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}

	s.db.log.Debug().Str("batch", b.ID).Int("results", len(b.Results)).Msg("batch saved")
	return nil
}

// GetBatch loads one batch with all of its results.
func (s *HistoryStore) GetBatch(id string) (*compare.Batch, error) {
	var b compare.Batch
	var startedAt string
	var durationMS int64

	err := s.db.sql.QueryRow(
		`SELECT id, prompt, region, started_at, duration_ms FROM batches WHERE id = ?`, id,
	).Scan(&b.ID, &b.Prompt, &b.Region, &startedAt, &durationMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading batch: %w", err)
	}

	b.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	b.Duration = time.Duration(durationMS) * time.Millisecond
	b.Results = make(map[string]compare.Result)

	rows, err := s.db.sql.Query(
		`SELECT agent_name, success, model, response, error, timestamp, duration_ms
		 FROM results WHERE batch_id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("loading results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, model, response, errText, ts string
		var success int
		var resultMS int64
		if err := rows.Scan(&name, &success, &model, &response, &errText, &ts, &resultMS); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}

		r := compare.Result{
			Success:  success != 0,
			Response: response,
			Error:    errText,
			Model:    model,
			Duration: time.Duration(resultMS) * time.Millisecond,
		}
		r.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		b.Results[name] = r
	}

	return &b, rows.Err()
}

// ListBatches returns the most recent batches, newest first.
func (s *HistoryStore) ListBatches(limit int) ([]BatchSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.sql.Query(`
		SELECT b.id, b.prompt, b.region, b.started_at,
		       COUNT(r.id), COALESCE(SUM(1 - r.success), 0)
		FROM batches b
		LEFT JOIN results r ON r.batch_id = b.id
		GROUP BY b.id
		ORDER BY b.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	var summaries []BatchSummary
	for rows.Next() {
		var s BatchSummary
		var startedAt string
		if err := rows.Scan(&s.ID, &s.Prompt, &s.Region, &startedAt, &s.Agents, &s.Failures); err != nil {
			return nil, fmt.Errorf("scanning batch summary: %w", err)
		}
		s.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Clear deletes all stored batches and their results.
func (s *HistoryStore) Clear() error {
	if _, err := s.db.sql.Exec(`DELETE FROM batches`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	s.db.log.Info().Msg("history cleared")
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
