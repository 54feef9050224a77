// Package vrgda implements a client for a variable-rate gradual dutch
// auction token-launch program: pricing, address derivation, state
// reading and transaction orchestration.
package vrgda

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/vrgda-labs/vrgda-go/internal/blockchain"
	"github.com/vrgda-labs/vrgda-go/internal/config"
	"github.com/vrgda-labs/vrgda-go/internal/wallet"
)

// Client is the facade over the reader and the transaction orchestrator.
// Read operations work without a wallet; Initialize, Buy and
// CloseAuction require one.
type Client struct {
	reader       *Reader
	orchestrator *Orchestrator
	pricing      PricingEngine
	wallet       *wallet.Wallet
	logger       *zap.Logger
}

// New wires a client from its dependencies. w may be nil for read-only
// use.
func New(chain blockchain.Client, w *wallet.Wallet, cfg *config.Config, logger *zap.Logger) *Client {
	log := logger.Named("vrgda-client")
	reader := NewReader(chain, cfg.Program(), cfg.MetadataProgram(), log)

	var orchestrator *Orchestrator
	if w != nil {
		orchestrator = NewOrchestrator(chain, w, reader, OrchestratorOptions{
			ProgramID:         cfg.Program(),
			MetadataProgramID: cfg.MetadataProgram(),
			WsolMint:          cfg.Wsol(),
			SubmitAttempts:    cfg.SubmitAttempts,
			ComputeUnitLimit:  cfg.ComputeUnitLimit,
			ExplorerTxURL:     cfg.ExplorerTxURL,
		}, log)
	}

	return &Client{
		reader:       reader,
		orchestrator: orchestrator,
		wallet:       w,
		logger:       log,
	}
}

// Initialize launches a new auction.
func (c *Client) Initialize(ctx context.Context, params *InitializeParams) (*InitializeResult, error) {
	if c.orchestrator == nil {
		return nil, ErrWalletNotConnected
	}
	return c.orchestrator.Initialize(ctx, params)
}

// Buy purchases tokens from an auction.
func (c *Client) Buy(ctx context.Context, params *BuyParams) (*BuyResult, error) {
	if c.orchestrator == nil {
		return nil, ErrWalletNotConnected
	}
	return c.orchestrator.Buy(ctx, params)
}

// CloseAuction ends an auction the wallet is the authority of.
func (c *Client) CloseAuction(ctx context.Context, auction solana.PublicKey) (*CloseResult, error) {
	if c.orchestrator == nil {
		return nil, ErrWalletNotConnected
	}
	return c.orchestrator.CloseAuction(ctx, auction)
}

// GetInfo returns the display view of one auction.
func (c *Client) GetInfo(ctx context.Context, auction solana.PublicKey) (*AuctionInfo, error) {
	return c.reader.GetInfo(ctx, auction)
}

// ListAll returns every auction of the program, newest first.
func (c *Client) ListAll(ctx context.Context) ([]*AuctionInfo, error) {
	return c.reader.ListAll(ctx)
}

// Paginate returns one page of the auction listing.
func (c *Client) Paginate(ctx context.Context, page, limit int) (*PaginatedAuctions, error) {
	return c.reader.Paginate(ctx, page, limit)
}

// QuoteParams are the inputs of a pure price quote.
type QuoteParams struct {
	TimePassed     float64
	TokensSold     float64
	Amount         float64
	TargetPrice    float64
	DecayConstant  float64
	UnitsPerPeriod float64
	ReservePrice   float64
}

// QuoteResult is a client-side price estimate. The program's fixed-point
// evaluation is the settlement source of truth.
type QuoteResult struct {
	// NextTokenPrice is the price of the single next token, in SOL.
	NextTokenPrice float64
	// TotalCost is the cost of buying Amount tokens at once, in SOL.
	TotalCost float64
}

// Quote evaluates the price curve without touching the network.
func (c *Client) Quote(params *QuoteParams) (*QuoteResult, error) {
	switch {
	case params.DecayConstant <= 0:
		return nil, newValidationError("decayConstant", "Decay constant must be greater than 0")
	case params.DecayConstant >= 1:
		return nil, newValidationError("decayConstant", "Decay constant must be less than 1")
	case params.UnitsPerPeriod <= 0:
		return nil, newValidationError("r", "r must be greater than 0")
	case params.TargetPrice <= 0:
		return nil, newValidationError("targetPrice", "Target price must be greater than 0")
	case params.Amount <= 0:
		return nil, newValidationError("amount", "Amount must be greater than 0")
	}

	p := PricingParams{
		TargetPrice:    params.TargetPrice,
		DecayConstant:  params.DecayConstant,
		UnitsPerPeriod: params.UnitsPerPeriod,
		ReservePrice:   params.ReservePrice,
	}
	return &QuoteResult{
		NextTokenPrice: c.pricing.Price(params.TimePassed, params.TokensSold, p),
		TotalCost:      c.pricing.CostForAmount(params.TimePassed, params.TokensSold, params.Amount, p),
	}, nil
}
