package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/MrEthical07/campusAuth/account"
	"github.com/MrEthical07/campusAuth/password"
	"github.com/MrEthical07/campusAuth/storage/sqlite"
	"github.com/MrEthical07/campusAuth/tenant"
)

// SeedCommand writes organizations and accounts into a SQLite directory.
func SeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Seed a SQLite directory",
		Subcommands: []*cli.Command{
			{
				Name:  "tenant",
				Usage: "Create or update an organization",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "tenant id (generated when empty)"},
					&cli.StringFlag{Name: "name", Usage: "display name", Required: true},
					&cli.StringFlag{Name: "subdomain", Usage: "unique subdomain", Required: true},
					&cli.IntFlag{Name: "consent-age", Usage: "digital consent age", Value: 14},
					&cli.BoolFlag{Name: "inactive", Usage: "create the organization disabled"},
				},
				Action: seedTenant,
			},
			{
				Name:  "account",
				Usage: "Create or update an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "account id (generated when empty)"},
					&cli.StringFlag{Name: "tenant", Usage: "tenant id", Required: true},
					&cli.StringFlag{Name: "email", Usage: "login email", Required: true},
					&cli.StringFlag{Name: "name", Usage: "full name"},
					&cli.StringFlag{Name: "password", Usage: "plaintext password", Required: true},
					&cli.StringFlag{Name: "status", Usage: "lifecycle state", Value: account.StatusActive.String()},
					&cli.StringSliceFlag{Name: "role", Usage: "ROLE=perm1,perm2 (repeatable)"},
				},
				Action: seedAccount,
			},
		},
	}
}

func openStore(c *cli.Context) (*sqlite.Store, error) {
	path := c.String("sqlite")
	if path == "" {
		return nil, fmt.Errorf("--sqlite is required")
	}
	return sqlite.Open(path)
}

func seedTenant(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	id := c.String("id")
	if id == "" {
		id = uuid.NewString()
	}
	t := tenant.Tenant{
		ID:                id,
		Name:              c.String("name"),
		Subdomain:         c.String("subdomain"),
		Active:            !c.Bool("inactive"),
		DigitalConsentAge: c.Int("consent-age"),
	}
	if err := store.PutTenant(c.Context, t); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, id)
	return nil
}

func seedAccount(c *cli.Context) error {
	status, ok := account.ParseStatus(c.String("status"))
	if !ok {
		return fmt.Errorf("unknown status %q", c.String("status"))
	}
	roles, err := parseRoles(c.StringSlice("role"))
	if err != nil {
		return err
	}

	h, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return err
	}
	hash, err := h.Hash(c.String("password"))
	if err != nil {
		return err
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.FindByID(c.Context, c.String("tenant")); err != nil {
		return fmt.Errorf("tenant %s: %w", c.String("tenant"), err)
	}

	id := c.String("id")
	if id == "" {
		id = uuid.NewString()
	}
	err = store.PutAccount(c.Context, account.Identity{
		ID:           id,
		TenantID:     c.String("tenant"),
		FullName:     c.String("name"),
		Email:        c.String("email"),
		PasswordHash: hash,
		Status:       status,
		Roles:        roles,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, id)
	return nil
}

// parseRoles reads "name=perm1,perm2" specs.
func parseRoles(specs []string) ([]account.Role, error) {
	roles := make([]account.Role, 0, len(specs))
	for _, spec := range specs {
		name, perms, _ := strings.Cut(spec, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid role %q", spec)
		}
		role := account.Role{Name: name}
		for _, p := range strings.Split(perms, ",") {
			if p = strings.TrimSpace(p); p != "" {
				role.Permissions = append(role.Permissions, p)
			}
		}
		roles = append(roles, role)
	}
	return roles, nil
}

