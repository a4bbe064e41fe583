package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/MrEthical07/campusAuth/account"
	"github.com/MrEthical07/campusAuth/jwt"
)

// TokenCommand groups token debugging helpers.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint and inspect tokens",
		Subcommands: []*cli.Command{
			{
				Name:  "mint",
				Usage: "Mint an access token for local testing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "account", Usage: "account id", Required: true},
					&cli.StringFlag{Name: "email", Usage: "account email", Required: true},
					&cli.StringFlag{Name: "tenant", Usage: "tenant id", Required: true},
					&cli.StringFlag{Name: "subdomain", Usage: "tenant subdomain"},
					&cli.StringSliceFlag{Name: "role", Usage: "role name (repeatable)"},
					&cli.StringSliceFlag{Name: "permission", Usage: "permission (repeatable)"},
					&cli.DurationFlag{Name: "ttl", Usage: "token lifetime", Value: jwt.DefaultAccessTTL},
				},
				Action: tokenMint,
			},
			{
				Name:      "inspect",
				Usage:     "Verify a token and print its claims",
				ArgsUsage: "TOKEN",
				Action:    tokenInspect,
			},
		},
	}
}

func tokenMint(c *cli.Context) error {
	codec, err := codecFromFlags(c, c.Duration("ttl"))
	if err != nil {
		return err
	}
	claims := jwt.AccessClaims{
		UserID:          c.String("account"),
		TenantID:        c.String("tenant"),
		TenantSubdomain: c.String("subdomain"),
		Roles:           c.StringSlice("role"),
		Permissions:     c.StringSlice("permission"),
		AccountStatus:   account.StatusActive.String(),
	}
	claims.Subject = account.NormalizeEmail(c.String("email"))

	token, exp, err := codec.SignAccess(claims)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, token)
	fmt.Fprintf(c.App.ErrWriter, "expires %s\n", exp.UTC().Format(time.RFC3339))
	return nil
}

func tokenInspect(c *cli.Context) error {
	token := strings.TrimSpace(c.Args().First())
	if token == "" {
		return fmt.Errorf("token argument is required")
	}
	codec, err := codecFromFlags(c, jwt.DefaultAccessTTL)
	if err != nil {
		return err
	}
	claims, err := codec.ExtractClaims(token)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(claims)
}
