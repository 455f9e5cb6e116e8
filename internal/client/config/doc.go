// Package config loads runtime configuration for the authctl CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the authcore gRPC endpoint
//	-k string   internal API key
//	-f string   local state file
//	-t int      request timeout (seconds)
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "internal_api_key": "...",
//	  "state_file": "authctl.db",
//	  "request_timeout": "10s"
//	}
package config
