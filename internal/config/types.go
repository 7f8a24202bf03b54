package config

// Config is the root configuration for agentarena.
type Config struct {
	Region  string        `yaml:"region,omitempty"`  // AWS region hosting the Bedrock agents
	Agents  []AgentEntry  `yaml:"agents,omitempty"`  // agents to compare, in display order
	Compare CompareConfig `yaml:"compare,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`
}

// AgentEntry identifies one Bedrock agent configuration to compare.
// Name is the result-mapping key and must be unique within the list.
type AgentEntry struct {
	Name         string `yaml:"name"`
	AgentID      string `yaml:"agentId"`
	AgentAliasID string `yaml:"agentAliasId"`
	SessionID    string `yaml:"sessionId,omitempty"` // stable per entry; generated if empty
}

// CompareConfig tunes the fan-out invoker.
type CompareConfig struct {
	MaxWorkers int `yaml:"maxWorkers,omitempty"` // concurrent invocation cap
}

// ServerConfig controls the HTTP/WebSocket API server.
type ServerConfig struct {
	Port           int        `yaml:"port,omitempty"`
	Bind           string     `yaml:"bind,omitempty"` // "loopback" | "lan"
	Auth           ServerAuth `yaml:"auth,omitempty"`
	AllowedOrigins []string   `yaml:"allowedOrigins,omitempty"`
}

// ServerAuth configures API authentication.
type ServerAuth struct {
	Token string `yaml:"token,omitempty"` // supports ${ENV_VAR} expansion
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
}

// HistoryConfig configures comparison batch persistence.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"` // sqlite file; defaults under the data dir
}
