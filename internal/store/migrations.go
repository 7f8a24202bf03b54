package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create batches and results",
		SQL: `
			CREATE TABLE batches (
				id           TEXT PRIMARY KEY,
				prompt       TEXT NOT NULL,
				region       TEXT NOT NULL,
				started_at   TEXT NOT NULL,
				duration_ms  INTEGER NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_batches_started ON batches (started_at);

			CREATE TABLE results (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				batch_id    TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
				agent_name  TEXT NOT NULL,
				success     INTEGER NOT NULL,
				model       TEXT NOT NULL,
				response    TEXT NOT NULL DEFAULT '',
				error       TEXT NOT NULL DEFAULT '',
				timestamp   TEXT NOT NULL,
				duration_ms INTEGER NOT NULL DEFAULT 0,
				UNIQUE (batch_id, agent_name)
			);

			CREATE INDEX idx_results_batch ON results (batch_id);
		`,
	},
}
