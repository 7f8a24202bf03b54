package compare

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// exportTimeLayout matches the human-readable timestamps the comparison
// UI shows and exports.
const exportTimeLayout = "2006-01-02 15:04:05"

// exportEntry is the external JSON shape of one result.
type exportEntry struct {
	Success   bool   `json:"success"`
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
	Model     string `json:"model"`
	Timestamp string `json:"timestamp"`
}

// MarshalExport serializes the batch result mapping in the external export
// schema: per entry a success flag, model name, timestamp, and either the
// response text or the error text.
func (b *Batch) MarshalExport() ([]byte, error) {
	entries := make(map[string]exportEntry, len(b.Results))
	for name, r := range b.Results {
		entries[name] = exportEntry{
			Success:   r.Success,
			Response:  r.Response,
			Error:     r.Error,
			Model:     r.Model,
			Timestamp: r.Timestamp.Format(exportTimeLayout),
		}
	}
	return json.MarshalIndent(entries, "", "  ")
}

// ExportFilename returns a timestamped file name for a batch export.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("agentarena_comparison_%s.json", now.Format("20060102_150405"))
}

// WriteExport writes the batch export JSON to the given path.
func (b *Batch) WriteExport(path string) error {
	data, err := b.MarshalExport()
	if err != nil {
		return fmt.Errorf("marshaling export: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// SummaryRow is one line of the comparison summary table.
type SummaryRow struct {
	Model          string
	Success        bool
	ResponseLength int
	Timestamp      string
}

// Summary produces per-agent status rows, in the given order when supplied,
// otherwise sorted by name.
func (b *Batch) Summary(order []string) []SummaryRow {
	names := order
	if len(names) == 0 {
		names = make([]string, 0, len(b.Results))
		for name := range b.Results {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	rows := make([]SummaryRow, 0, len(names))
	for _, name := range names {
		r, ok := b.Results[name]
		if !ok {
			continue
		}
		row := SummaryRow{
			Model:     r.Model,
			Success:   r.Success,
			Timestamp: r.Timestamp.Format(exportTimeLayout),
		}
		if r.Success {
			row.ResponseLength = len(r.Response)
		}
		rows = append(rows, row)
	}
	return rows
}
