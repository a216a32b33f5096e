package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/brojonat/solxfer/service/amount"
	"github.com/brojonat/solxfer/service/db"
	"github.com/urfave/cli/v2"
)

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded transfers (requires database_url)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "signer",
				Usage: "Signer address (default: the configured keypair)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   20,
				Usage:   "Maximum number of transfers",
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of transfers to skip",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq filter applied to the JSON output (implies --json)",
			},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			store, err := rt.store(c.Context)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("database_url is required (set it in the config file or DATABASE_URL)")
			}

			signer := c.String("signer")
			if signer == "" {
				signer = rt.signer.PublicKey().String()
			}

			transfers, err := store.ListTransfers(c.Context, db.ListTransfersParams{
				Signer: signer,
				Limit:  int32(c.Int("limit")),
				Offset: int32(c.Int("offset")),
			})
			if err != nil {
				return fmt.Errorf("failed to list transfers: %w", err)
			}

			if c.Bool("json") || c.String("jq") != "" {
				return outputJSON(c.App.Writer, transfers, c.String("jq"))
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SIGNATURE\tTOKEN\tAMOUNT\tDESTINATION\tSTATUS\tCREATED")
			for _, t := range transfers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					t.Signature,
					formatToken(t.TokenMint),
					amount.FromRaw(t.Decimals, t.Amount).String(),
					t.Destination,
					formatStatus(t),
					t.CreatedAt.Format(time.RFC3339),
				)
			}
			return w.Flush()
		},
	}
}

func formatToken(mint *string) string {
	if mint != nil && *mint != "" {
		return *mint
	}
	return "SOL"
}

func formatStatus(t *db.Transfer) string {
	if t.Success {
		return "success"
	}
	if t.Error != nil {
		return "fail: " + *t.Error
	}
	return "fail"
}
