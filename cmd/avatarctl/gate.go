package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	caddyavatarproxy "github.com/philiph/caddy-avatar-proxy"
)

var cmdHash = &cli.Command{
	Name:  "hash",
	Usage: "print the gate_hash for a username and password, or check one",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "username",
			Usage:    "gate username (surrounding whitespace is ignored)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "password",
			Usage:    "gate password",
			Required: true,
			EnvVars:  []string{"AVATAR_GATE_PASSWORD"},
		},
		&cli.StringFlag{
			Name:  "check",
			Usage: "existing gate_hash to test the credentials against",
		},
	},
	Action: runHash,
}

func runHash(cctx *cli.Context) error {
	username := cctx.String("username")
	password := cctx.String("password")

	expected := cctx.String("check")
	if expected == "" {
		fmt.Fprintln(cctx.App.Writer, caddyavatarproxy.HashCredentials(username, password))
		return nil
	}

	state := caddyavatarproxy.NewMemoryGateState()
	if err := unlockWith(state, expected, username, password); err != nil {
		return err
	}
	fmt.Fprintf(cctx.App.Writer, "unlocked: %v\n", state.IsUnlocked())
	return nil
}

// unlockWith opens state when the credentials match the hash.
func unlockWith(state caddyavatarproxy.GateState, expectedHash, username, password string) error {
	if !caddyavatarproxy.CredentialsMatch(expectedHash, username, password) {
		return fmt.Errorf("credentials do not match")
	}
	return state.Unlock()
}
