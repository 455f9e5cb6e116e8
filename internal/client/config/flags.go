package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/authcore/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   address and port of the authcore server
//	-k string   internal API key
//	-f string   path of the local state file
//	-t int      request timeout (in seconds)
//
// Only the flags above are passed to the FlagSet (see flagx.FilterArgs).
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-f", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.InternalAPIKey, "k", cfg.InternalAPIKey, "internal API key")
	fs.StringVar(&cfg.StateFile, "f", cfg.StateFile, "local state file")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
