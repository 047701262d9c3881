package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/brojonat/omniscan/client"
	"github.com/brojonat/omniscan/service/explorer"
	"github.com/urfave/cli/v2"
)

func queryCommands() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "HTTP client commands for querying the omniscan service",
		Subcommands: []*cli.Command{
			networksCommand(),
			balanceCommand(),
			balancesCommand(),
			addressTxsCommand(),
			txDetailsCommand(),
			tokenTxsCommand(),
			scanCommand(),
		},
	}
}

// newAPIClient builds an HTTP client against the configured server URL.
// Errors go to stderr so stdout stays clean for piped JSON.
func newAPIClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	return client.NewClient(c.String("server-url"), nil, logger)
}

func networksCommand() *cli.Command {
	return &cli.Command{
		Name:  "networks",
		Usage: "List configured networks and their operations",
		Action: func(c *cli.Context) error {
			cl := newAPIClient(c)
			networks, err := cl.Networks(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list networks: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(networks, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			for _, n := range networks {
				fmt.Printf("%-6s %s\n", n.Network, strings.Join(n.Operations, ", "))
			}
			return nil
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Fetch the native balance of an address",
		ArgsUsage: "NETWORK ADDRESS",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("network and address are required")
			}
			network := c.Args().Get(0)
			address := c.Args().Get(1)

			cl := newAPIClient(c)
			balance, err := cl.GetBalance(context.Background(), network, address)
			if err != nil {
				return fmt.Errorf("failed to get balance: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(balance, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Address:  %s\n", balance.Address)
			fmt.Printf("Balance:  %s\n", balance.Balance.String())
			if balance.Unconfirmed != nil {
				fmt.Printf("Pending:  %s\n", balance.Unconfirmed.String())
			}
			return nil
		},
	}
}

func balancesCommand() *cli.Command {
	return &cli.Command{
		Name:      "balances",
		Usage:     "Fetch the native balances of several addresses",
		ArgsUsage: "NETWORK ADDRESS [ADDRESS...]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("network and at least one address are required")
			}
			network := c.Args().Get(0)
			addresses := c.Args().Slice()[1:]

			cl := newAPIClient(c)
			balances, err := cl.GetBalances(context.Background(), network, addresses)
			if err != nil {
				return fmt.Errorf("failed to get balances: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(balances, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			for _, b := range balances {
				fmt.Printf("%s  %s\n", b.Address, b.Balance.String())
			}
			return nil
		},
	}
}

func addressTxsCommand() *cli.Command {
	return &cli.Command{
		Name:      "txs",
		Usage:     "List recent transfers touching an address",
		ArgsUsage: "NETWORK ADDRESS",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("network and address are required")
			}
			network := c.Args().Get(0)
			address := c.Args().Get(1)

			cl := newAPIClient(c)
			txs, err := cl.GetAddressTxs(context.Background(), network, address)
			if err != nil {
				return fmt.Errorf("failed to get transfers: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(txs, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			if len(txs) == 0 {
				fmt.Println("No transfers found")
				return nil
			}
			for _, tx := range txs {
				printTransferDetailed(tx)
			}
			return nil
		},
	}
}

func txDetailsCommand() *cli.Command {
	return &cli.Command{
		Name:      "tx",
		Usage:     "Fetch the normalized transfers of a transaction",
		ArgsUsage: "NETWORK HASH",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "token",
				Usage: "Resolve the hash through the token pipeline",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("network and transaction hash are required")
			}
			network := c.Args().Get(0)
			hash := c.Args().Get(1)

			cl := newAPIClient(c)
			details, err := cl.GetTxDetails(context.Background(), network, hash, c.Bool("token"))
			if err != nil {
				return fmt.Errorf("failed to get transaction: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(details, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			if len(details.Transfers) == 0 {
				if details.Success {
					fmt.Printf("Transaction %s produced no transfers\n", details.Hash)
				} else {
					fmt.Printf("Transaction %s not found or failed on chain\n", details.Hash)
				}
				return nil
			}
			for _, tx := range details.Transfers {
				printTransferDetailed(tx)
			}
			return nil
		},
	}
}

func tokenTxsCommand() *cli.Command {
	return &cli.Command{
		Name:      "token-txs",
		Usage:     "List token transfers for an address and contract",
		ArgsUsage: "NETWORK ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "contract",
				Usage:    "Token contract or mint address",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("network and address are required")
			}
			network := c.Args().Get(0)
			address := c.Args().Get(1)

			cl := newAPIClient(c)
			txs, err := cl.GetTokenTxs(context.Background(), network, address, c.String("contract"))
			if err != nil {
				return fmt.Errorf("failed to get token transfers: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(txs, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			if len(txs) == 0 {
				fmt.Println("No token transfers found")
				return nil
			}
			for _, tx := range txs {
				printTransferDetailed(tx)
			}
			return nil
		},
	}
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Advance the network's block scan and print the transfers found",
		ArgsUsage: "NETWORK",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("network is required")
			}
			network := c.Args().Get(0)

			cl := newAPIClient(c)
			result, err := cl.ScanBlocks(context.Background(), network)
			if err != nil {
				return fmt.Errorf("failed to scan blocks: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(result, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Scanned blocks %d..%d (head %d)\n", result.FromBlock, result.ToBlock, result.Head)
			fmt.Printf("Transfers found: %d\n\n", len(result.Transfers))
			for _, tx := range result.Transfers {
				printTransferDetailed(tx)
			}
			return nil
		},
	}
}

func printTransferDetailed(tx *explorer.TransferTx) {
	fmt.Println("─────────────────────────────────────────────────────")
	fmt.Printf("Hash:       %s\n", tx.TxHash)
	fmt.Printf("From:       %s\n", tx.FromAddress)
	fmt.Printf("To:         %s\n", tx.ToAddress)
	fmt.Printf("Value:      %s %s\n", tx.Value.String(), tx.Symbol)
	if tx.BlockHeight != nil {
		fmt.Printf("Height:     %d\n", *tx.BlockHeight)
	}
	if tx.Confirmations != nil {
		fmt.Printf("Confirms:   %d\n", *tx.Confirmations)
	}
	if tx.Date != nil {
		fmt.Printf("Date:       %s\n", tx.Date.Format(time.RFC3339))
	}
	if tx.TxFee != nil {
		fmt.Printf("Fee:        %s\n", tx.TxFee.String())
	}
	if tx.Token != nil {
		fmt.Printf("Token:      %s\n", *tx.Token)
	}
	if tx.Memo != nil && *tx.Memo != "" {
		fmt.Printf("Memo:       %s\n", *tx.Memo)
	}
	if !tx.Success {
		fmt.Printf("Status:     FAILED\n")
	}
	fmt.Println()
}
