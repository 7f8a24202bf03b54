package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".agentarena"

// Paths holds resolved filesystem paths for agentarena data.
type Paths struct {
	Base    string // ~/.agentarena
	Config  string // ~/.agentarena/config.yaml
	Data    string // ~/.agentarena/data
	Exports string // ~/.agentarena/exports
}

// ResolvePaths computes all standard paths from the home directory.
// If AGENTARENA_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("AGENTARENA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:    base,
		Config:  filepath.Join(base, "config.yaml"),
		Data:    filepath.Join(base, "data"),
		Exports: filepath.Join(base, "exports"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Data, p.Exports} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// HistoryDBPath returns the sqlite path for batch history, honoring an
// explicit config override.
func (p Paths) HistoryDBPath(cfg HistoryConfig) string {
	if cfg.Path != "" {
		return cfg.Path
	}
	return filepath.Join(p.Data, "agentarena.db")
}
