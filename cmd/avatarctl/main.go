// Command avatarctl resolves avatars and prepares gate and catalog settings
// from the command line.
// Usage: go run ./cmd/avatarctl resolve @handle
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	caddyavatarproxy "github.com/philiph/caddy-avatar-proxy"
)

func main() {
	if err := run(os.Args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	app := cli.App{
		Name:    "avatarctl",
		Usage:   "avatar proxy command line tool",
		Version: caddyavatarproxy.Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log upstream requests to stderr",
			},
		},
	}
	app.Commands = []*cli.Command{
		cmdResolve,
		cmdHash,
		cmdQuote,
	}
	return app.Run(args)
}

// newLogger returns a development logger with --verbose and a no-op one otherwise.
func newLogger(cctx *cli.Context) (*zap.Logger, error) {
	if !cctx.Bool("verbose") {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}
