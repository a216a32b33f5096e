package main

import (
	"fmt"

	"github.com/brojonat/solxfer/service/balance"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"
)

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Show SOL and token balances",
		ArgsUsage: "[OWNER]",
		Description: `Lists the SOL balance of OWNER (default: the signer) and every token account
it owns under spl-token and spl-token-2022.`,
		Flags: []cli.Flag{
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
			if c.NArg() > 1 {
				return fmt.Errorf("accepts at most one argument: owner address")
			}

			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			owner := rt.signer.PublicKey()
			if c.NArg() == 1 {
				owner, err = solanago.PublicKeyFromBase58(c.Args().First())
				if err != nil {
					return fmt.Errorf("invalid owner address: %w", err)
				}
			}

			report, err := balance.NewService(rt.client, rt.logger).Balances(c.Context, owner)
			if err != nil {
				return fmt.Errorf("failed to get balances: %w", err)
			}

			if c.Bool("json") || c.String("jq") != "" {
				return outputJSON(c.App.Writer, report, c.String("jq"))
			}
			for _, line := range report.Lines() {
				fmt.Fprintln(c.App.Writer, line)
			}
			return nil
		},
	}
}
