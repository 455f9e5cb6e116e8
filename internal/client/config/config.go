package config

import "time"

// Config holds runtime settings for the authctl CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the authcore gRPC endpoint.
//   - InternalAPIKey: shared key sent with IssueSession only. When empty the
//     CLI prompts for it.
//   - StateFile: SQLite file holding the current token pair between runs.
//   - RequestTimeout: per-call deadline.
type Config struct {
	ServerEndpointAddr string
	InternalAPIKey     string
	StateFile          string
	RequestTimeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.StateFile = "authctl.db"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
