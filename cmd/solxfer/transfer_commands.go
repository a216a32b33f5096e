package main

import (
	"fmt"

	"github.com/brojonat/solxfer/service/amount"
	"github.com/brojonat/solxfer/service/transfer"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"
)

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Transfer tokens or SOL to a wallet or token account",
		Description: `Either --source (a token account) or --token (a mint) selects what is sent.
With --token the signer's associated account is used, preferring spl-token
over spl-token-2022 when both exist. A wallet destination receives into its
associated account, which is created if needed.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "Source token account address",
			},
			&cli.StringFlag{
				Name:    "token",
				Aliases: []string{"t"},
				Usage:   "Token mint address",
			},
			&cli.StringFlag{
				Name:     "destination",
				Aliases:  []string{"d"},
				Usage:    "Destination wallet or token account address",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "amount",
				Aliases:  []string{"a"},
				Usage:    "Amount in whole units (e.g. 1.5); excess precision is truncated",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "native",
				Usage: "Transfer SOL instead of a token",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print the instructions without submitting",
			},
			&cli.BoolFlag{
				Name:  "allow-unfunded-recipient",
				Usage: "Treat a destination with no account as a wallet",
			},
			&cli.BoolFlag{
				Name:  "skip-preflight",
				Usage: "Skip transaction simulation before sending",
			},
		},
		Action: func(c *cli.Context) error {
			req, err := parseTransferRequest(c)
			if err != nil {
				return err
			}

			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := c.Context
			xfer := transfer.Runtime{
				Signer:                 rt.signer,
				Accounts:               rt.client,
				Executor:               rt.executor(c.Bool("skip-preflight")),
				AllowUnfundedRecipient: c.Bool("allow-unfunded-recipient"),
			}

			if c.Bool("dry-run") {
				svc := transfer.NewService(xfer, nil, nil, rt.metrics, rt.logger)
				plan, err := svc.Plan(ctx, req)
				if err != nil {
					return err
				}
				lines, err := transfer.Describe(plan.Instructions)
				if err != nil {
					return err
				}
				for _, line := range lines {
					fmt.Fprintln(c.App.Writer, line)
				}
				return nil
			}

			// Observers are optional; an unreachable one is logged and skipped.
			var store transfer.StoreInterface
			if s, err := rt.store(ctx); err != nil {
				rt.logger.WarnContext(ctx, "transfer history disabled", "error", err)
			} else if s != nil {
				store = s
			}
			var publisher transfer.PublisherInterface
			if p, err := rt.publisher(ctx); err != nil {
				rt.logger.WarnContext(ctx, "transfer events disabled", "error", err)
			} else if p != nil {
				publisher = p
			}

			svc := transfer.NewService(xfer, store, publisher, rt.metrics, rt.logger)
			status, err := svc.Transfer(ctx, req)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "transfer: %s\n", transfer.Report(status))
			if !status.Success {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// parseTransferRequest validates the flags without touching the network.
func parseTransferRequest(c *cli.Context) (transfer.Request, error) {
	var req transfer.Request

	destination, err := solanago.PublicKeyFromBase58(c.String("destination"))
	if err != nil {
		return req, fmt.Errorf("invalid destination address: %w", err)
	}
	req.Destination = destination

	req.Amount, err = amount.Parse(c.String("amount"))
	if err != nil {
		return req, err
	}

	if s := c.String("source"); s != "" {
		source, err := solanago.PublicKeyFromBase58(s)
		if err != nil {
			return req, fmt.Errorf("invalid source address: %w", err)
		}
		req.Source = &source
	}
	if s := c.String("token"); s != "" {
		mint, err := solanago.PublicKeyFromBase58(s)
		if err != nil {
			return req, fmt.Errorf("invalid token mint address: %w", err)
		}
		req.Mint = &mint
	}

	req.Native = c.Bool("native")
	if req.Native && (req.Source != nil || req.Mint != nil) {
		return req, transfer.ErrConflictingSource
	}
	if !req.Native && req.Source == nil && req.Mint == nil {
		return req, transfer.ErrMissingSourceSpecifier
	}
	return req, nil
}
