package config

import (
	"flag"
	"io"
	"time"

	"github.com/sgics/sgics/internal/flagx"
)

// parseFlags populates Config fields from short command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8000")
//	-g string   gRPC health bind address ("" disables)
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-e string   environment (development|production)
//	-l string   log level
//	-m bool     apply migrations on start (use -m=false to disable)
//
// Arguments are filtered through flagx.FilterArgs first so flags owned by
// other layers (-c) do not make parsing fail.
func parseFlags(cfg *Config, args []string) error {
	filtered := flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-s", "-t", "-r", "-e", "-l", "-m"})

	fs := flag.NewFlagSet("sgics", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "address and port to serve HTTP on")
	fs.StringVar(&cfg.GRPCHealthAddr, "g", cfg.GRPCHealthAddr, "address and port of the gRPC health service")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	access := fs.Int("t", int(cfg.AccessTokenValidityDuration.Minutes()), "access token validity (minutes)")
	refresh := fs.Int("r", int(cfg.RefreshTokenValidityDuration.Minutes()), "refresh token validity (minutes)")
	fs.StringVar(&cfg.Environment, "e", cfg.Environment, "environment")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.MigrateOnStart, "m", cfg.MigrateOnStart, "apply pending migrations on start")

	if err := fs.Parse(filtered); err != nil {
		return err
	}

	// only explicitly given minute flags override, so sub-minute values from
	// earlier layers survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.AccessTokenValidityDuration = time.Duration(*access) * time.Minute
		case "r":
			cfg.RefreshTokenValidityDuration = time.Duration(*refresh) * time.Minute
		}
	})
	return nil
}
