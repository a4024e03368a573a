package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	caddyavatarproxy "github.com/philiph/caddy-avatar-proxy"
)

var cmdResolve = &cli.Command{
	Name:      "resolve",
	Usage:     "resolve the avatar URL of a handle",
	ArgsUsage: `<handle>`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "scheme and host profile pages are fetched from",
			Value:   caddyavatarproxy.DefaultProfileBaseURL,
			EnvVars: []string{"AVATAR_PROFILE_BASE_URL"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-request upstream timeout",
			Value: 10 * time.Second,
		},
		&cli.StringFlag{
			Name:  "rules",
			Usage: "JSON or YAML file with extra extraction rules",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "write the avatar image (or the placeholder) to this file",
		},
	},
	Action: runResolve,
}

func runResolve(cctx *cli.Context) error {
	ctx := context.Background()
	handle := caddyavatarproxy.NormalizeHandle(cctx.Args().First())
	if handle == "" {
		return fmt.Errorf("need to provide a handle as an argument")
	}

	logger, err := newLogger(cctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	rules := caddyavatarproxy.DefaultExtractionRules()
	if path := cctx.String("rules"); path != "" {
		extra, err := caddyavatarproxy.LoadRulesFile(path)
		if err != nil {
			return err
		}
		rules = caddyavatarproxy.MergeRules(extra, false)
	}

	opts := []caddyavatarproxy.AvatarOption{
		caddyavatarproxy.WithHTTPClient(caddyavatarproxy.NewHTTPClient(cctx.Duration("timeout"))),
		caddyavatarproxy.WithProfileBaseURL(cctx.String("base-url")),
		caddyavatarproxy.WithRules(rules),
		caddyavatarproxy.WithLogger(logger),
	}
	resolver := caddyavatarproxy.NewHTTPAvatarResolver(opts...)

	avatarURL, found := resolver.Resolve(ctx, handle)
	if found {
		fmt.Fprintln(cctx.App.Writer, avatarURL)
	} else {
		fmt.Fprintln(cctx.App.Writer, "no avatar found")
	}

	output := cctx.String("output")
	if output == "" {
		return nil
	}

	img := caddyavatarproxy.PlaceholderImage()
	if found {
		fetched, err := caddyavatarproxy.NewHTTPImageFetcher(opts...).Fetch(ctx, avatarURL)
		if err != nil {
			logger.Warn("using placeholder", zap.Error(err))
		} else {
			img = fetched
		}
	}
	if err := os.WriteFile(output, img.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Fprintf(cctx.App.Writer, "wrote %d bytes (%s) to %s\n", len(img.Data), img.ContentType, output)
	return nil
}
