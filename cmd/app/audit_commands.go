package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/fleetvault/cmd/app/commands"
	"github.com/allisson/fleetvault/internal/app"
	"github.com/allisson/fleetvault/internal/config"
)

func getAuditCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "verify-chain",
			Usage: "Recompute every audit chain hash and report the first break",
			Flags: []cli.Flag{
				actorFlag(),
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				chain, err := container.AuditChain()
				if err != nil {
					return err
				}
				if err := chain.Load(ctx); err != nil {
					return err
				}
				verifier, err := container.ChainVerifier()
				if err != nil {
					return err
				}

				return commands.RunVerifyChain(
					ctx,
					verifier,
					chain,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("actor"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "detect-tamper",
			Usage: "Check one stored audit event against its hash",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Audit event ID (UUID)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				verifier, err := container.ChainVerifier()
				if err != nil {
					return err
				}

				return commands.RunDetectTamper(
					ctx,
					verifier,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("format"),
				)
			},
		},
	}
}
