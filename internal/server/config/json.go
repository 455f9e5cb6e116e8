package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/authcore/internal/flagx"
	"github.com/dmitrijs2005/authcore/internal/timex"
)

// JsonConfig is the file form of Config. Durations accept "15m" style
// strings or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	MetricsAddr                  string         `json:"metrics_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	InternalAPIKey               string         `json:"internal_api_key"`
	Issuer                       string         `json:"issuer"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	SweepInterval                timex.Duration `json:"sweep_interval"`
	RedisAddr                    string         `json:"redis_addr"`
	RefreshRateLimit             int            `json:"refresh_rate_limit"`
	RefreshRateWindow            timex.Duration `json:"refresh_rate_window"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	AuditBufferSize              int            `json:"audit_buffer_size"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrGRPC:             c.EndpointAddrGRPC,
		MetricsAddr:                  c.MetricsAddr,
		DatabaseDSN:                  c.DatabaseDSN,
		SecretKey:                    c.SecretKey,
		InternalAPIKey:               c.InternalAPIKey,
		Issuer:                       c.Issuer,
		AccessTokenValidityDuration:  timex.Duration{Duration: c.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: c.RefreshTokenValidityDuration},
		SweepInterval:                timex.Duration{Duration: c.SweepInterval},
		RedisAddr:                    c.RedisAddr,
		RefreshRateLimit:             c.RefreshRateLimit,
		RefreshRateWindow:            timex.Duration{Duration: c.RefreshRateWindow},
		S3RootUser:                   c.S3RootUser,
		S3RootPassword:               c.S3RootPassword,
		S3Bucket:                     c.S3Bucket,
		S3Region:                     c.S3Region,
		S3BaseEndpoint:               c.S3BaseEndpoint,
		AuditBufferSize:              c.AuditBufferSize,
	}
}

// parseJson overlays the JSON file named by -c/-config (or $AUTHCORE_CONFIG)
// onto config. Keys absent from the file keep their current value. An
// unreadable or invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrGRPC = c.EndpointAddrGRPC
	config.MetricsAddr = c.MetricsAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.InternalAPIKey = c.InternalAPIKey
	config.Issuer = c.Issuer
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	config.SweepInterval = c.SweepInterval.Duration
	config.RedisAddr = c.RedisAddr
	config.RefreshRateLimit = c.RefreshRateLimit
	config.RefreshRateWindow = c.RefreshRateWindow.Duration
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.AuditBufferSize = c.AuditBufferSize
}
