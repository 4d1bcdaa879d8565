package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the authsvc CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authsvc",
		Short: "Auth service - credentials, sessions and password resets",
		Long: `authsvc serves user registration, login sessions and password
resets over HTTP. Backends and the auth flavor are chosen through
environment variables (AUTH_TYPE, CREDENTIAL_STORE, SESSION_STORE, ...).`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHashCmd())

	return cmd
}
