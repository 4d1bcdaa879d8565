package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/99minutos/auth-service/internal/infrastructure/hash"
	"github.com/99minutos/auth-service/internal/pkg/config"
)

// NewHashCmd creates the hash subcommand.
func NewHashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash [password]",
		Short: "Print the digest of a password",
		Long: `Hash a password with the configured hasher (PASSWORD_HASHER) and print
the digest. Without an argument the first line of stdin is read.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHash,
	}
	cmd.Flags().String("algorithm", "", "bcrypt or argon2id (overrides PASSWORD_HASHER)")
	return cmd
}

func runHash(cmd *cobra.Command, args []string) error {
	algorithm, _ := cmd.Flags().GetString("algorithm")
	if algorithm == "" {
		cfg, err := config.LoadFrom(envconfig.OsLookuper())
		if err != nil {
			return err
		}
		algorithm = cfg.Auth.PasswordHasher
	}
	hasher, err := hash.New(algorithm)
	if err != nil {
		return err
	}

	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("no password given on stdin")
		}
		password = strings.TrimRight(line, "\r\n")
	}

	digest, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), digest)
	return nil
}
