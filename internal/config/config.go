package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Regions lists the Bedrock regions the comparison UI offers.
var Regions = []string{
	"us-west-2",
	"us-east-1",
	"eu-west-1",
	"eu-central-1",
	"ap-southeast-1",
	"ap-northeast-1",
}

// MaxAgents is the largest number of agents one batch may compare.
const MaxAgents = 4

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Region: "us-west-2",
		Compare: CompareConfig{
			MaxWorkers: MaxAgents,
		},
		Server: ServerConfig{
			Port: 18790,
			Bind: "loopback",
		},
		Logging: LoggingConfig{
			Level: "info",
			Style: "pretty",
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}
