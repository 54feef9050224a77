// Command vrgdactl launches, inspects and buys from on-chain token
// auctions.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/vrgda-labs/vrgda-go/internal/blockchain/solbc"
	"github.com/vrgda-labs/vrgda-go/internal/config"
	"github.com/vrgda-labs/vrgda-go/internal/utils/logger"
	"github.com/vrgda-labs/vrgda-go/internal/vrgda"
	"github.com/vrgda-labs/vrgda-go/internal/wallet"
)

var configPath string

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := &cobra.Command{
		Use:           "vrgdactl",
		Short:         "Client for VRGDA token auctions on Solana",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(
		newLaunchCmd(),
		newBuyCmd(),
		newInfoCmd(),
		newListCmd(),
		newQuoteCmd(),
		newCloseCmd(),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newClient builds the full client stack. withWallet controls whether a
// signing key is required.
func newClient(withWallet bool) (*vrgda.Client, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, err
	}

	var w *wallet.Wallet
	if withWallet {
		switch {
		case cfg.PrivateKey != "":
			w, err = wallet.NewWallet(cfg.PrivateKey)
		case cfg.KeypairPath != "":
			w, err = wallet.NewWalletFromFile(cfg.KeypairPath)
		default:
			err = fmt.Errorf("this command needs a wallet: set private_key or keypair_path")
		}
		if err != nil {
			return nil, nil, err
		}
	}

	chain := solbc.NewClient(cfg.RPCURL, log.Logger)
	return vrgda.New(chain, w, cfg, log.Logger), log, nil
}

func newLaunchCmd() *cobra.Command {
	var (
		targetPrice   float64
		decayConstant float64
		rate          uint64
		totalSupply   uint64
		startTime     int64
		name          string
		symbol        string
		uri           string
		mintPath      string
	)

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Launch a new token auction",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, log, err := newClient(true)
			if err != nil {
				return err
			}
			defer log.Sync()

			var mint solana.PrivateKey
			if mintPath != "" {
				mint, err = solana.PrivateKeyFromSolanaKeygenFile(mintPath)
				if err != nil {
					return fmt.Errorf("load mint keypair: %w", err)
				}
			} else {
				mint, err = solana.NewRandomPrivateKey()
				if err != nil {
					return err
				}
			}

			result, err := client.Initialize(cmd.Context(), &vrgda.InitializeParams{
				Mint:           mint,
				TargetPrice:    targetPrice,
				DecayConstant:  decayConstant,
				UnitsPerPeriod: rate,
				TotalSupply:    totalSupply,
				StartTimestamp: startTime,
				Name:           name,
				Symbol:         symbol,
				URI:            uri,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Auction:   %s\n", result.Auction)
			fmt.Printf("Mint:      %s\n", result.Mint)
			fmt.Printf("Signature: %s\n", result.Signature)
			fmt.Printf("Explorer:  %s\n", result.TxURL)
			return nil
		},
	}

	cmd.Flags().Float64Var(&targetPrice, "target-price", 0, "target price per token in SOL")
	cmd.Flags().Float64Var(&decayConstant, "decay", 0, "price decay constant (0,1)")
	cmd.Flags().Uint64Var(&rate, "rate", 0, "tokens issued per unit time")
	cmd.Flags().Uint64Var(&totalSupply, "supply", 0, "total supply in whole tokens")
	cmd.Flags().Int64Var(&startTime, "start", 0, "auction start unix timestamp (0 = now)")
	cmd.Flags().StringVar(&name, "name", "", "token name")
	cmd.Flags().StringVar(&symbol, "symbol", "", "token symbol")
	cmd.Flags().StringVar(&uri, "uri", "", "token metadata URI")
	cmd.Flags().StringVar(&mintPath, "mint-keypair", "", "path to mint keypair (random if omitted)")
	return cmd
}

func newBuyCmd() *cobra.Command {
	var amount uint64

	cmd := &cobra.Command{
		Use:   "buy <auction-address>",
		Short: "Buy tokens from an auction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			auction, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("invalid auction address: %w", err)
			}

			client, log, err := newClient(true)
			if err != nil {
				return err
			}
			defer log.Sync()

			result, err := client.Buy(cmd.Context(), &vrgda.BuyParams{
				Auction: auction,
				Amount:  amount,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Bought %d tokens (est. %.6f SOL)\n", result.Amount, result.EstimatedCost)
			fmt.Printf("Destination: %s\n", result.Destination)
			fmt.Printf("Signature:   %s\n", result.Signature)
			fmt.Printf("Explorer:    %s\n", result.TxURL)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount to buy in whole tokens")
	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <auction-address>",
		Short: "Show one auction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			auction, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("invalid auction address: %w", err)
			}

			client, log, err := newClient(false)
			if err != nil {
				return err
			}
			defer log.Sync()

			info, err := client.GetInfo(cmd.Context(), auction)
			if err != nil {
				return err
			}
			return printJSON(info)
		},
	}
}

func newListCmd() *cobra.Command {
	var (
		page  int
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List auctions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, log, err := newClient(false)
			if err != nil {
				return err
			}
			defer log.Sync()

			result, err := client.Paginate(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", vrgda.DefaultPaginationLimit, "items per page")
	return cmd
}

func newQuoteCmd() *cobra.Command {
	var params vrgda.QuoteParams

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Evaluate the price curve offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, log, err := newClient(false)
			if err != nil {
				return err
			}
			defer log.Sync()

			quote, err := client.Quote(&params)
			if err != nil {
				return err
			}

			fmt.Printf("Next token price: %.9f SOL\n", quote.NextTokenPrice)
			fmt.Printf("Total cost (%g):  %.9f SOL\n", params.Amount, quote.TotalCost)
			return nil
		},
	}

	cmd.Flags().Float64Var(&params.TimePassed, "time-passed", 0, "seconds since auction start")
	cmd.Flags().Float64Var(&params.TokensSold, "sold", 0, "tokens already sold")
	cmd.Flags().Float64Var(&params.Amount, "amount", 1, "tokens to price")
	cmd.Flags().Float64Var(&params.TargetPrice, "target-price", 0, "target price per token in SOL")
	cmd.Flags().Float64Var(&params.DecayConstant, "decay", 0, "price decay constant (0,1)")
	cmd.Flags().Float64Var(&params.UnitsPerPeriod, "rate", 0, "tokens issued per unit time")
	cmd.Flags().Float64Var(&params.ReservePrice, "reserve", 0, "reserve price in SOL")
	return cmd
}

func newCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <auction-address>",
		Short: "Close an auction you are the authority of",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			auction, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("invalid auction address: %w", err)
			}

			client, log, err := newClient(true)
			if err != nil {
				return err
			}
			defer log.Sync()

			result, err := client.CloseAuction(cmd.Context(), auction)
			if err != nil {
				return err
			}

			fmt.Printf("Auction closed: %s\n", result.Auction)
			fmt.Printf("Signature:      %s\n", result.Signature)
			fmt.Printf("Explorer:       %s\n", result.TxURL)
			return nil
		},
	}
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
