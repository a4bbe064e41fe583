package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/MrEthical07/campusAuth/refresh"
	"github.com/MrEthical07/campusAuth/storage/sqlite"
)

// SweepCommand purges expired and long-revoked refresh records.
func SweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Purge spent refresh-token records from SQLite or Redis",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "retention",
				Usage: "how long revoked records are kept for reuse detection",
				Value: 24 * time.Hour,
			},
			&cli.StringFlag{
				Name:  "redis-prefix",
				Usage: "refresh key prefix",
				Value: "rt",
			},
		},
		Action: sweep,
	}
}

func sweep(c *cli.Context) error {
	var (
		store   refresh.Store
		cleanup func()
	)
	switch {
	case c.String("sqlite") != "":
		s, err := sqlite.Open(c.String("sqlite"), sqlite.WithRetention(c.Duration("retention")))
		if err != nil {
			return err
		}
		store, cleanup = s, func() { _ = s.Close() }
	case c.String("redis-addr") != "":
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{c.String("redis-addr")},
		})
		store = refresh.NewRedisStore(client, c.String("redis-prefix"), c.Duration("retention"))
		cleanup = func() { _ = client.Close() }
	default:
		return fmt.Errorf("--sqlite or --redis-addr is required")
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(c.Context, time.Minute)
	defer cancel()

	n, err := store.Sweep(ctx, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "removed %d\n", n)
	return nil
}
