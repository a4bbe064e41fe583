package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/MrEthical07/campusAuth/password"
)

// HashPasswordCommand prints an Argon2id hash for a plaintext password.
func HashPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-password",
		Usage:     "Hash a password with the engine's Argon2id parameters",
		ArgsUsage: "[PASSWORD]",
		Description: "Reads the password from the first argument, or from the first line " +
			"of stdin when no argument is given.",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "memory",
				Usage: "Argon2 memory in KB",
				Value: uint(password.DefaultConfig().Memory),
			},
			&cli.UintFlag{
				Name:  "time",
				Usage: "Argon2 iterations",
				Value: uint(password.DefaultConfig().Time),
			},
		},
		Action: hashPassword,
	}
}

func hashPassword(c *cli.Context) error {
	plaintext := c.Args().First()
	if plaintext == "" {
		line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		plaintext = strings.TrimRight(line, "\r\n")
	}
	if plaintext == "" {
		return fmt.Errorf("password is required")
	}

	cfg := password.DefaultConfig()
	cfg.Memory = uint32(c.Uint("memory"))
	cfg.Time = uint32(c.Uint("time"))
	h, err := password.NewArgon2(cfg)
	if err != nil {
		return err
	}
	hash, err := h.Hash(plaintext)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, hash)
	return nil
}
