package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/authcore/internal/flagx"
	"github.com/dmitrijs2005/authcore/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// accept "10s" strings or integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	InternalAPIKey     string         `json:"internal_api_key"`
	StateFile          string         `json:"state_file"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
}

// parseJson overlays cfg with values from the file named by -c or -config.
// Keys absent from the file keep their current values. Read and decode
// errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	jc := JsonConfig{
		ServerEndpointAddr: cfg.ServerEndpointAddr,
		InternalAPIKey:     cfg.InternalAPIKey,
		StateFile:          cfg.StateFile,
		RequestTimeout:     timex.Duration{Duration: cfg.RequestTimeout},
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	cfg.InternalAPIKey = jc.InternalAPIKey
	cfg.StateFile = jc.StateFile
	cfg.RequestTimeout = jc.RequestTimeout.Duration
}
