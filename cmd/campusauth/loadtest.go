package main

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	campusAuth "github.com/MrEthical07/campusAuth"
	"github.com/MrEthical07/campusAuth/account"
	"github.com/MrEthical07/campusAuth/tenant"
)

const loadTestPassword = "loadtest-password-1"

// LoadTestCommand drives login and refresh through a Redis-backed engine.
func LoadTestCommand() *cli.Command {
	return &cli.Command{
		Name:  "loadtest",
		Usage: "Run login and refresh phases against a Redis-backed engine",
		Description: "Uses --redis-addr when set, otherwise an in-process miniredis. " +
			"Accounts live in memory.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "accounts", Usage: "number of accounts to seed", Value: 1000},
			&cli.IntFlag{Name: "concurrency", Usage: "number of concurrent workers", Value: 64},
			&cli.IntFlag{Name: "ops", Usage: "operations per phase", Value: 5000},
			&cli.UintFlag{Name: "argon-memory", Usage: "Argon2 memory in KB", Value: 8 * 1024},
		},
		Action: loadTest,
	}
}

type loadState struct {
	email string
	mu    sync.Mutex
	token string
}

func loadTest(c *cli.Context) error {
	accounts, concurrency, ops := c.Int("accounts"), c.Int("concurrency"), c.Int("ops")
	if accounts <= 0 || concurrency <= 0 || ops <= 0 {
		return fmt.Errorf("accounts, concurrency, and ops must be > 0")
	}
	out := c.App.Writer
	ctx := c.Context

	client, cleanup, err := loadTestRedis(c.String("redis-addr"), out)
	if err != nil {
		return err
	}
	defer cleanup()

	secret := c.String("secret")
	if secret == "" {
		secret = "loadtest-signing-secret-0123456789abcdef"
	}
	cfg := campusAuth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(secret)
	cfg.Password.Memory = uint32(c.Uint("argon-memory"))
	cfg.Password.Time = 1
	cfg.Tracing.Enabled = false

	accountDir := account.NewDirectory()
	tenantDir := tenant.NewDirectory()
	engine, err := campusAuth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithCredentialLookup(accountDir).
		WithTenantLookup(tenantDir).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	states, err := seedLoadTest(engine, accountDir, tenantDir, accounts, out)
	if err != nil {
		return err
	}

	loginStats := runPhase("login", ops, concurrency, func(i int) error {
		st := states[i%len(states)]
		res, err := engine.Login(ctx, st.email, loadTestPassword)
		if err != nil {
			return err
		}
		st.mu.Lock()
		st.token = res.RefreshToken
		st.mu.Unlock()
		return nil
	})
	refreshStats := runPhase("refresh", ops, concurrency, func(i int) error {
		st := states[i%len(states)]
		st.mu.Lock()
		defer st.mu.Unlock()
		res, err := engine.Refresh(ctx, st.token)
		if err != nil {
			return err
		}
		st.token = res.RefreshToken
		return nil
	})

	return writeStats(out, loginStats, refreshStats)
}

func loadTestRedis(addr string, out io.Writer) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Fprintf(out, "using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}
	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Fprintf(out, "using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func seedLoadTest(engine *campusAuth.Engine, accounts *account.Directory, tenants *tenant.Directory, n int, out io.Writer) ([]*loadState, error) {
	const tenantID = "t-load"
	if err := tenants.Put(tenant.Tenant{ID: tenantID, Name: "Load", Subdomain: "load", Active: true}); err != nil {
		return nil, err
	}
	hash, err := engine.HashPassword(loadTestPassword)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "seeding %d accounts...\n", n)
	states := make([]*loadState, n)
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("user%d@load.test", i)
		accounts.Put(account.Identity{
			ID:           fmt.Sprintf("acc-%d", i),
			TenantID:     tenantID,
			Email:        email,
			PasswordHash: hash,
			Status:       account.StatusActive,
		})
		tenants.IndexEmail(email, tenantID)
		states[i] = &loadState{email: email}
	}
	return states, nil
}

// runPhase hands out op indexes to workers until ops is reached. Each worker
// keeps its own latency slice; they are merged once the phase ends.
func runPhase(name string, ops, concurrency int, op func(i int) error) phaseStats {
	var (
		wg       sync.WaitGroup
		cursor   atomic.Int64
		failures atomic.Int64
	)
	perWorker := make([][]time.Duration, concurrency)

	start := time.Now()
	for w := range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(cursor.Add(1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				if err := op(i); err != nil {
					failures.Add(1)
				}
				perWorker[w] = append(perWorker[w], time.Since(t0))
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	return summarize(name, elapsed, slices.Concat(perWorker...), failures.Load())
}
