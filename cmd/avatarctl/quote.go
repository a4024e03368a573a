package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	caddyavatarproxy "github.com/philiph/caddy-avatar-proxy"
)

var cmdQuote = &cli.Command{
	Name:      "quote",
	Usage:     "price a coin pack",
	ArgsUsage: `<pack-id>`,
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:  "coins",
			Usage: "coin amount for the custom pack",
		},
		&cli.BoolFlag{
			Name:  "discount",
			Usage: "apply the catalog discount",
		},
	},
	Action: runQuote,
}

func runQuote(cctx *cli.Context) error {
	packID := cctx.Args().First()
	if packID == "" {
		return fmt.Errorf("need to provide a pack id as an argument")
	}

	q, err := caddyavatarproxy.QuotePack(caddyavatarproxy.DefaultPacks(), packID, cctx.Int64("coins"), cctx.Bool("discount"))
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cctx.App.Writer, string(b))
	return nil
}
