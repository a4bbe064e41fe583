package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	campusAuth "github.com/MrEthical07/campusAuth"
	"github.com/MrEthical07/campusAuth/jwt"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "campusauth",
		Usage:   "campusAuth operator tool",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			HashPasswordCommand(),
			SeedCommand(),
			TokenCommand(),
			SweepCommand(),
			LoadTestCommand(),
		},
	}
}

func envVar(name string) []string {
	return []string{campusAuth.EnvPrefix + name}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "secret",
			Usage:   "HS256 signing secret (at least 32 bytes)",
			EnvVars: envVar("SIGNING_SECRET"),
		},
		&cli.StringFlag{
			Name:    "issuer",
			Usage:   "token issuer",
			EnvVars: envVar("ISSUER"),
		},
		&cli.StringFlag{
			Name:    "audience",
			Usage:   "token audience",
			EnvVars: envVar("AUDIENCE"),
		},
		&cli.StringFlag{
			Name:    "sqlite",
			Usage:   "SQLite database path",
			EnvVars: envVar("SQLITE_PATH"),
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis address",
			EnvVars: envVar("REDIS_ADDR"),
		},
	}
}

// codecFromFlags builds a token codec from the global signing flags.
func codecFromFlags(c *cli.Context, accessTTL time.Duration) (*jwt.Codec, error) {
	secret := c.String("secret")
	if secret == "" {
		return nil, fmt.Errorf("--secret or %sSIGNING_SECRET is required", campusAuth.EnvPrefix)
	}
	return jwt.NewCodec(jwt.Config{
		AccessTTL:     accessTTL,
		RefreshTTL:    jwt.DefaultRefreshTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(secret),
		Issuer:        c.String("issuer"),
		Audience:      c.String("audience"),
	})
}
