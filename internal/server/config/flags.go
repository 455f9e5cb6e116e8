package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/authcore/internal/flagx"
)

var serverFlags = []string{"-a", "-m", "-d", "-s", "-k", "-i", "-t", "-r", "-w", "-l", "-n", "-u", "-p", "-b", "-g", "-e"}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-m string   metrics bind address (e.g., ":9090")
//	-d string   PostgreSQL DSN
//	-s string   token signing secret (32+ bytes)
//	-k string   internal API key for IssueSession
//	-i string   token issuer
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-w int      expired session sweep interval, minutes
//	-l string   Redis address for refresh rate limiting
//	-n int      refresh attempts allowed per user per window
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 audit bucket
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Duration flags are whole minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port to serve metrics")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.InternalAPIKey, "k", config.InternalAPIKey, "internal API key")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "token issuer")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")
	sweepInterval := fs.Int("w", int(config.SweepInterval.Minutes()), "sweep_interval (in minutes)")

	fs.StringVar(&config.RedisAddr, "l", config.RedisAddr, "Redis address for rate limiting")
	fs.IntVar(&config.RefreshRateLimit, "n", config.RefreshRateLimit, "refresh attempts per user per window")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 audit bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.SweepInterval = time.Duration(*sweepInterval) * time.Minute
}
