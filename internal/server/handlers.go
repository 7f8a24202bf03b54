package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/agentarena/agentarena/internal/compare"
	"github.com/agentarena/agentarena/internal/config"
	"github.com/agentarena/agentarena/internal/store"
	"github.com/agentarena/agentarena/internal/version"
)

// compareRequest is the POST /api/compare body. When agents is omitted the
// configured agent list is used.
type compareRequest struct {
	Prompt string                `json:"prompt"`
	Agents []compare.AgentConfig `json:"agents,omitempty"`
}

type compareStartedEvent struct {
	Prompt string `json:"prompt"`
	Agents int    `json:"agents"`
	Region string `json:"region"`
}

type agentResultEvent struct {
	Agent   string `json:"agent"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type compareCompletedEvent struct {
	BatchID  string `json:"batchId"`
	Agents   int    `json:"agents"`
	Failures int    `json:"failures"`
	Duration string `json:"duration"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Version,
		"region":  s.cfg.Region,
		"agents":  len(s.cfg.Agents),
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	agents := req.Agents
	if len(agents) == 0 {
		agents = agentConfigs(s.cfg.Agents)
	}

	s.hub.Broadcast("compare.started", compareStartedEvent{
		Prompt: req.Prompt,
		Agents: len(agents),
		Region: s.cfg.Region,
	})

	batch, err := s.comparer.Run(r.Context(), req.Prompt, agents)
	if err != nil {
		var verr *compare.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"issues": verr.Issues,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	failures := 0
	for _, res := range batch.Results {
		if !res.Success {
			failures++
		}
	}
	s.hub.Broadcast("compare.completed", compareCompletedEvent{
		BatchID:  batch.ID,
		Agents:   len(batch.Results),
		Failures: failures,
		Duration: batch.Duration.Round(time.Millisecond).String(),
	})

	if s.history != nil {
		if err := s.history.SaveBatch(batch); err != nil {
			s.log.Error().Err(err).Str("batch", batch.ID).Msg("saving batch failed")
		}
	}

	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"region": s.cfg.Region,
		"agents": agentConfigs(s.cfg.Agents),
	})
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	summaries, err := s.history.ListBatches(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summaries == nil {
		summaries = []store.BatchSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": summaries})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.loadBatch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.loadBatch(w, r)
	if !ok {
		return
	}

	data, err := batch.MarshalExport()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", compare.ExportFilename(batch.StartedAt)))
	w.Write(data)
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	if err := s.history.Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

// loadBatch resolves the {id} path value against the history store, writing
// the error response itself when the batch cannot be served.
func (s *Server) loadBatch(w http.ResponseWriter, r *http.Request) (*compare.Batch, bool) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return nil, false
	}
	batch, err := s.history.GetBatch(r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "batch not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return batch, true
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

// agentConfigs converts configured agent entries into batch agent configs.
func agentConfigs(entries []config.AgentEntry) []compare.AgentConfig {
	agents := make([]compare.AgentConfig, len(entries))
	for i, e := range entries {
		agents[i] = compare.AgentConfig{
			Name:         e.Name,
			AgentID:      e.AgentID,
			AgentAliasID: e.AgentAliasID,
			SessionID:    e.SessionID,
		}
	}
	return agents
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
