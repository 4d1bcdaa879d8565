// Package main is the entry point for the auth service.
//
//	@title			Auth Service API
//	@version		1.0
//	@description	Credential store, session lifecycle and password reset over HTTP.
//	@BasePath		/api/v1
//	@securityDefinitions.basic	BasicAuth
//	@securityDefinitions.apikey	SessionCookie
//	@in							cookie
//	@name						_my_session_id
package main

import (
	"fmt"
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
