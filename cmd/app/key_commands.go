package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/fleetvault/cmd/app/commands"
	"github.com/allisson/fleetvault/internal/app"
	"github.com/allisson/fleetvault/internal/config"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-secret",
			Usage: "Generate a classification master secret, optionally wrapped by a KMS key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "classification",
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "Classification the secret belongs to (INTERNAL, CONFIDENTIAL or RESTRICTED)",
				},
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Usage: "KMS key URI used to wrap the secret (e.g. gcpkms://..., awskms://..., base64key://...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())

				return commands.RunCreateSecret(
					ctx,
					container.KMSService(),
					commands.DefaultIO().Writer,
					cmd.String("classification"),
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "rotate-keys",
			Usage: "Activate a new key version for one or every keyed classification",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "classification",
					Aliases: []string{"c"},
					Usage:   "Classification to rotate (omit to rotate all)",
				},
				actorFlag(),
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				keyManager, err := container.KeyManager()
				if err != nil {
					return err
				}
				chain, err := container.AuditChain()
				if err != nil {
					return err
				}

				return commands.RunRotateKeys(
					ctx,
					keyManager,
					chain,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("actor"),
					cmd.String("classification"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "purge-key-version",
			Usage: "Destroy a retired key version; data sealed under it becomes unrecoverable",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "classification",
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "Classification owning the version",
				},
				&cli.IntFlag{
					Name:     "version",
					Aliases:  []string{"v"},
					Required: true,
					Usage:    "Retired version to destroy",
				},
				&cli.BoolFlag{
					Name:  "confirm",
					Usage: "Acknowledge that the purge is irreversible",
				},
				actorFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				keyManager, err := container.KeyManager()
				if err != nil {
					return err
				}
				chain, err := container.AuditChain()
				if err != nil {
					return err
				}

				return commands.RunPurgeKeyVersion(
					ctx,
					keyManager,
					chain,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("actor"),
					cmd.String("classification"),
					int64(cmd.Int("version")),
					cmd.Bool("confirm"),
				)
			},
		},
	}
}
