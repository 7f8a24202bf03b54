package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Region != "" && !slices.Contains(Regions, cfg.Region) {
		issues = append(issues, ValidationIssue{
			Path:    "region",
			Message: fmt.Sprintf("must be one of %v, got %q", Regions, cfg.Region),
		})
	}

	if len(cfg.Agents) > MaxAgents {
		issues = append(issues, ValidationIssue{
			Path:    "agents",
			Message: fmt.Sprintf("at most %d agents may be compared, got %d", MaxAgents, len(cfg.Agents)),
		})
	}

	seen := make(map[string]bool, len(cfg.Agents))
	for i, a := range cfg.Agents {
		path := fmt.Sprintf("agents[%d]", i)
		if a.Name == "" {
			issues = append(issues, ValidationIssue{
				Path:    path + ".name",
				Message: "name is required",
			})
		} else if seen[a.Name] {
			issues = append(issues, ValidationIssue{
				Path:    path + ".name",
				Message: fmt.Sprintf("duplicate agent name %q", a.Name),
			})
		}
		seen[a.Name] = true

		if a.AgentID == "" {
			issues = append(issues, ValidationIssue{
				Path:    path + ".agentId",
				Message: "agentId is required",
			})
		}
		if a.AgentAliasID == "" {
			issues = append(issues, ValidationIssue{
				Path:    path + ".agentAliasId",
				Message: "agentAliasId is required",
			})
		}
	}

	if cfg.Compare.MaxWorkers < 0 || cfg.Compare.MaxWorkers > MaxAgents {
		issues = append(issues, ValidationIssue{
			Path:    "compare.maxWorkers",
			Message: fmt.Sprintf("must be 0-%d, got %d", MaxAgents, cfg.Compare.MaxWorkers),
		})
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	validBinds := []string{"loopback", "lan"}
	if cfg.Server.Bind != "" && !slices.Contains(validBinds, cfg.Server.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "server.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Server.Bind),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validStyles := []string{"pretty", "json"}
	if cfg.Logging.Style != "" && !slices.Contains(validStyles, cfg.Logging.Style) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.style",
			Message: fmt.Sprintf("must be one of %v, got %q", validStyles, cfg.Logging.Style),
		})
	}

	return issues
}
