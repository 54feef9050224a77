package vrgda

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vrgda-labs/vrgda-go/internal/blockchain"
	"github.com/vrgda-labs/vrgda-go/internal/wallet"
)

const (
	mintAccountSize      = 82
	expectedMintDecimals = 6

	// SPL token program instruction index for InitializeMint2.
	tokenInitializeMint2Index = 20
)

// OrchestratorOptions configures the transaction flows.
type OrchestratorOptions struct {
	ProgramID         solana.PublicKey
	MetadataProgramID solana.PublicKey
	WsolMint          solana.PublicKey
	SubmitAttempts    int
	ComputeUnitLimit  uint32
	// ExplorerTxURL renders a signature into a block-explorer link for
	// the configured cluster.
	ExplorerTxURL func(signature string) string
}

// Orchestrator drives the initialize, buy and close flows: parameter
// validation, idempotent account setup, instruction assembly and bounded
// submission retry.
type Orchestrator struct {
	client  blockchain.Client
	wallet  *wallet.Wallet
	reader  *Reader
	pricing PricingEngine
	opts    OrchestratorOptions
	logger  *zap.Logger
	now     func() time.Time
}

// NewOrchestrator creates an orchestrator for one wallet and program
// deployment.
func NewOrchestrator(client blockchain.Client, w *wallet.Wallet, reader *Reader, opts OrchestratorOptions, logger *zap.Logger) *Orchestrator {
	if opts.SubmitAttempts <= 0 {
		opts.SubmitAttempts = 3
	}
	return &Orchestrator{
		client: client,
		wallet: w,
		reader: reader,
		opts:   opts,
		logger: logger.Named("orchestrator"),
		now:    time.Now,
	}
}

// InitializeParams describes a new auction launch.
type InitializeParams struct {
	// Mint is the keypair of the token mint. If the mint account does not
	// exist yet it is created in the same transaction.
	Mint solana.PrivateKey

	// TargetPrice is the on-schedule price per token, in SOL.
	TargetPrice float64
	// DecayConstant is the per-unit-time decay k, 0 < k < 1.
	DecayConstant float64
	// UnitsPerPeriod is the linear schedule rate r.
	UnitsPerPeriod uint64
	// TotalSupply is the supply offered, in whole tokens.
	TotalSupply uint64
	// StartTimestamp is the auction start, unix seconds. Zero means the
	// program assigns it at execution time.
	StartTimestamp int64

	Name   string
	Symbol string
	URI    string
}

// InitializeResult reports a successful auction launch.
type InitializeResult struct {
	Signature solana.Signature
	TxURL     string
	Auction   solana.PublicKey
	Mint      solana.PublicKey
	Authority solana.PublicKey
}

// BuyParams describes a token purchase.
type BuyParams struct {
	Auction solana.PublicKey
	// Amount is the purchase size in whole tokens.
	Amount uint64
}

// BuyResult reports a successful purchase.
type BuyResult struct {
	Signature solana.Signature
	TxURL     string
	Amount    uint64
	// Destination is the buyer's token account receiving the purchase.
	Destination solana.PublicKey
	// EstimatedCost is the client-side cost estimate in SOL. The program
	// settles against its own fixed-point evaluation.
	EstimatedCost float64
}

// CloseResult reports a closed auction.
type CloseResult struct {
	Signature solana.Signature
	TxURL     string
	Auction   solana.PublicKey
}

func validateInitializeParams(p *InitializeParams) error {
	switch {
	case p.Mint == nil:
		return newValidationError("mint", "Mint keypair is required")
	case p.DecayConstant <= 0:
		return newValidationError("decayConstant", "Decay constant must be greater than 0")
	case p.DecayConstant >= 1:
		return newValidationError("decayConstant", "Decay constant must be less than 1")
	case p.UnitsPerPeriod == 0:
		return newValidationError("r", "r must be greater than 0")
	case p.TargetPrice <= 0:
		return newValidationError("targetPrice", "Target price must be greater than 0")
	case p.TotalSupply == 0:
		return newValidationError("totalSupply", "Total supply must be greater than 0")
	case p.TotalSupply > 1e15:
		return newValidationError("totalSupply", "Total supply must be less than 1e15")
	}
	return nil
}

// Initialize launches a new auction: it verifies the auction does not
// already exist, creates the mint if needed, ensures the authority's
// wrapped-SOL account exists, and submits the initializeVrgda
// instruction. All setup is idempotent, so a retried transaction cannot
// half-apply.
func (o *Orchestrator) Initialize(ctx context.Context, params *InitializeParams) (*InitializeResult, error) {
	if o.wallet == nil {
		return nil, ErrWalletNotConnected
	}
	if err := validateInitializeParams(params); err != nil {
		return nil, err
	}

	authority := o.wallet.PublicKey
	mint := params.Mint.PublicKey()
	log := o.logger.With(
		zap.String("mint", mint.String()),
		zap.String("authority", authority.String()))

	auction, _, err := DeriveAuctionAddress(o.opts.ProgramID, mint, authority)
	if err != nil {
		return nil, err
	}

	if _, err := o.client.GetAccountInfo(ctx, auction); err == nil {
		return nil, fmt.Errorf("auction %s: %w", auction, ErrAuctionAlreadyExists)
	} else if !errors.Is(err, blockchain.ErrAccountNotFound) {
		return nil, &RPCError{Method: "getAccountInfo", Err: err}
	}

	instructions, err := o.buildInitializeInstructions(ctx, params, authority, mint, auction)
	if err != nil {
		return nil, err
	}

	log.Info("submitting auction initialization",
		zap.String("auction", auction.String()),
		zap.Int("instructions", len(instructions)))

	sig, err := o.submitWithRetry(ctx, instructions, params.Mint)
	if err != nil {
		return nil, err
	}

	log.Info("auction initialized", zap.String("signature", sig.String()))
	return &InitializeResult{
		Signature: sig,
		TxURL:     o.txURL(sig),
		Auction:   auction,
		Mint:      mint,
		Authority: authority,
	}, nil
}

// buildInitializeInstructions assembles the launch transaction body:
// optional mint creation, idempotent wrapped-SOL account setup, and the
// initializeVrgda instruction itself.
func (o *Orchestrator) buildInitializeInstructions(
	ctx context.Context,
	params *InitializeParams,
	authority, mint, auction solana.PublicKey,
) ([]solana.Instruction, error) {
	var instructions []solana.Instruction

	mintSetup, err := o.mintSetupInstructions(ctx, mint, authority)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, mintSetup...)

	vault, err := DeriveAssociatedTokenAddress(auction, mint)
	if err != nil {
		return nil, err
	}
	authoritySolAccount, err := DeriveAssociatedTokenAddress(authority, o.opts.WsolMint)
	if err != nil {
		return nil, err
	}

	if _, err := o.client.GetAccountInfo(ctx, authoritySolAccount); errors.Is(err, blockchain.ErrAccountNotFound) {
		instructions = append(instructions,
			wallet.CreateAssociatedTokenAccountIdempotentInstruction(authority, authority, o.opts.WsolMint))
	} else if err != nil {
		return nil, &RPCError{Method: "getAccountInfo", Err: err}
	}

	metadata, err := DeriveMetadataAddress(o.opts.MetadataProgramID, mint)
	if err != nil {
		return nil, err
	}

	initIx, err := newInitializeInstruction(&InitializeInstructionParams{
		ProgramID:            o.opts.ProgramID,
		Authority:            authority,
		Auction:              auction,
		AuctionVault:         vault,
		Mint:                 mint,
		AuctionSolAccount:    authoritySolAccount,
		MetadataProgram:      o.opts.MetadataProgramID,
		Metadata:             metadata,
		WsolMint:             o.opts.WsolMint,
		TargetPriceWad:       PriceToWad(params.TargetPrice),
		DecayConstantPercent: uint64(math.Floor(params.DecayConstant * 100)),
		StartTimestamp:       params.StartTimestamp,
		TotalSupplyBaseUnits: TokensToBaseUnits(params.TotalSupply),
		UnitsPerPeriod:       params.UnitsPerPeriod,
		Name:                 params.Name,
		Symbol:               params.Symbol,
		URI:                  params.URI,
	})
	if err != nil {
		return nil, err
	}
	return append(instructions, initIx), nil
}

// mintSetupInstructions returns the instructions needed to bring the
// mint account into the required state. An existing mint is accepted
// only when the wallet holds its mint authority.
func (o *Orchestrator) mintSetupInstructions(ctx context.Context, mint, authority solana.PublicKey) ([]solana.Instruction, error) {
	info, err := o.client.GetAccountInfo(ctx, mint)
	switch {
	case err == nil:
		mintAuthority, decimals, err := decodeMintAccount(mint, info.Data)
		if err != nil {
			return nil, err
		}
		if !mintAuthority.Equals(authority) {
			return nil, fmt.Errorf("mint %s: %w", mint, ErrMintAuthorityMismatch)
		}
		if decimals != expectedMintDecimals {
			o.logger.Warn("existing mint has unexpected decimals",
				zap.String("mint", mint.String()),
				zap.Uint8("decimals", decimals),
				zap.Uint8("expected", expectedMintDecimals))
		}
		return nil, nil

	case errors.Is(err, blockchain.ErrAccountNotFound):
		lamports, err := o.client.GetMinimumBalanceForRentExemption(ctx, mintAccountSize)
		if err != nil {
			return nil, &RPCError{Method: "getMinimumBalanceForRentExemption", Err: err}
		}
		createIx := system.NewCreateAccountInstruction(
			lamports,
			mintAccountSize,
			solana.TokenProgramID,
			authority,
			mint,
		).Build()
		return []solana.Instruction{createIx, newInitializeMint2Instruction(mint, expectedMintDecimals, authority)}, nil

	default:
		return nil, &RPCError{Method: "getAccountInfo", Err: err}
	}
}

// decodeMintAccount extracts the mint authority and decimals from a raw
// SPL mint account: a 4-byte authority option tag, the authority key,
// supply, then decimals at offset 44.
func decodeMintAccount(mint solana.PublicKey, data []byte) (solana.PublicKey, uint8, error) {
	if len(data) < mintAccountSize {
		return solana.PublicKey{}, 0, &DecodeError{Account: mint, Reason: fmt.Sprintf("mint data too short: %d bytes", len(data))}
	}
	hasAuthority := data[0] == 1
	if !hasAuthority {
		return solana.PublicKey{}, 0, &DecodeError{Account: mint, Reason: "mint has no mint authority"}
	}
	return solana.PublicKeyFromBytes(data[4:36]), data[44], nil
}

// newInitializeMint2Instruction builds the SPL token InitializeMint2
// instruction with no freeze authority.
func newInitializeMint2Instruction(mint solana.PublicKey, decimals uint8, mintAuthority solana.PublicKey) solana.Instruction {
	data := make([]byte, 0, 1+1+32+1)
	data = append(data, tokenInitializeMint2Index, decimals)
	data = append(data, mintAuthority.Bytes()...)
	data = append(data, 0) // no freeze authority

	return solana.NewInstruction(
		solana.TokenProgramID,
		[]*solana.AccountMeta{
			solana.NewAccountMeta(mint, true, false),
		},
		data,
	)
}

// Buy purchases tokens from an active auction. The cost returned is a
// client-side estimate; settlement follows the program's own pricing.
func (o *Orchestrator) Buy(ctx context.Context, params *BuyParams) (*BuyResult, error) {
	if o.wallet == nil {
		return nil, ErrWalletNotConnected
	}
	if params.Amount == 0 {
		return nil, newValidationError("amount", "Amount must be greater than 0")
	}

	buyer := o.wallet.PublicKey

	state, err := o.reader.Fetch(ctx, params.Auction)
	if err != nil {
		return nil, err
	}

	timePassed := o.now().Unix() - state.VrgdaStartTimestamp
	if timePassed < 0 {
		timePassed = 0
	}
	estimatedCost := o.pricing.CostForAmount(
		float64(timePassed),
		math.Floor(BaseUnitsToTokens(state.TokensSold)),
		float64(params.Amount),
		state.PricingParams(),
	)

	accounts, err := o.deriveBuyAccounts(buyer, state.Mint, params.Auction, state.Authority)
	if err != nil {
		return nil, err
	}

	instructions := []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(o.opts.ComputeUnitLimit).Build(),
	}
	if _, err := o.client.GetAccountInfo(ctx, accounts.buyerWsolAccount); errors.Is(err, blockchain.ErrAccountNotFound) {
		instructions = append(instructions,
			wallet.CreateAssociatedTokenAccountIdempotentInstruction(buyer, buyer, o.opts.WsolMint))
	} else if err != nil {
		return nil, &RPCError{Method: "getAccountInfo", Err: err}
	}

	instructions = append(instructions, newBuyInstruction(&BuyInstructionParams{
		ProgramID:         o.opts.ProgramID,
		Buyer:             buyer,
		Auction:           params.Auction,
		Mint:              state.Mint,
		WsolMint:          o.opts.WsolMint,
		BuyerWsolAccount:  accounts.buyerWsolAccount,
		BuyerTokenAccount: accounts.buyerTokenAccount,
		AuctionVault:      accounts.vault,
		AuctionSolAccount: accounts.authoritySolAccount,
		Authority:         state.Authority,
		AmountBaseUnits:   TokensToBaseUnits(params.Amount),
	}))

	o.logger.Info("submitting purchase",
		zap.String("auction", params.Auction.String()),
		zap.Uint64("amount", params.Amount),
		zap.Float64("estimated_cost_sol", estimatedCost))

	sig, err := o.submitWithRetry(ctx, instructions)
	if err != nil {
		return nil, err
	}

	return &BuyResult{
		Signature:     sig,
		TxURL:         o.txURL(sig),
		Amount:        params.Amount,
		Destination:   accounts.buyerTokenAccount,
		EstimatedCost: estimatedCost,
	}, nil
}

type buyAccounts struct {
	buyerTokenAccount   solana.PublicKey
	buyerWsolAccount    solana.PublicKey
	vault               solana.PublicKey
	authoritySolAccount solana.PublicKey
}

// deriveBuyAccounts derives the four token accounts of a purchase. The
// derivations are independent, so they run concurrently.
func (o *Orchestrator) deriveBuyAccounts(buyer, mint, auction, authority solana.PublicKey) (*buyAccounts, error) {
	var accounts buyAccounts
	g := new(errgroup.Group)
	g.Go(func() (err error) {
		accounts.buyerTokenAccount, err = DeriveAssociatedTokenAddress(buyer, mint)
		return err
	})
	g.Go(func() (err error) {
		accounts.buyerWsolAccount, err = DeriveAssociatedTokenAddress(buyer, o.opts.WsolMint)
		return err
	})
	g.Go(func() (err error) {
		accounts.vault, err = DeriveAssociatedTokenAddress(auction, mint)
		return err
	})
	g.Go(func() (err error) {
		accounts.authoritySolAccount, err = DeriveAssociatedTokenAddress(authority, o.opts.WsolMint)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &accounts, nil
}

// CloseAuction ends an auction. Only the auction authority may close it.
func (o *Orchestrator) CloseAuction(ctx context.Context, auction solana.PublicKey) (*CloseResult, error) {
	if o.wallet == nil {
		return nil, ErrWalletNotConnected
	}

	state, err := o.reader.Fetch(ctx, auction)
	if err != nil {
		return nil, err
	}
	if !state.Authority.Equals(o.wallet.PublicKey) {
		return nil, fmt.Errorf("auction %s authority is %s: %w", auction, state.Authority, ErrMintAuthorityMismatch)
	}

	vault, err := DeriveAssociatedTokenAddress(auction, state.Mint)
	if err != nil {
		return nil, err
	}
	authoritySolAccount, err := DeriveAssociatedTokenAddress(state.Authority, o.opts.WsolMint)
	if err != nil {
		return nil, err
	}

	ix := newCloseAuctionInstruction(&CloseInstructionParams{
		ProgramID:         o.opts.ProgramID,
		Authority:         state.Authority,
		Auction:           auction,
		AuctionVault:      vault,
		AuctionSolAccount: authoritySolAccount,
		Mint:              state.Mint,
		WsolMint:          o.opts.WsolMint,
	})

	sig, err := o.submitWithRetry(ctx, []solana.Instruction{ix})
	if err != nil {
		return nil, err
	}

	o.logger.Info("auction closed",
		zap.String("auction", auction.String()),
		zap.String("signature", sig.String()))
	return &CloseResult{Signature: sig, TxURL: o.txURL(sig), Auction: auction}, nil
}

// submitWithRetry runs the fetch-blockhash, sign, send, confirm cycle
// under a bounded exponential backoff. Each attempt signs against a
// fresh blockhash, so a stale hash never wastes an attempt. Program
// rejections abort immediately.
func (o *Orchestrator) submitWithRetry(ctx context.Context, instructions []solana.Instruction, extraSigners ...solana.PrivateKey) (solana.Signature, error) {
	// lastSig tracks the most recent attempt that reached the cluster, so
	// an already-exists rejection on a resend can report the signature of
	// the attempt that actually landed.
	var lastSig solana.Signature

	op := func() (solana.Signature, error) {
		blockhash, err := o.client.GetLatestBlockhash(ctx)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("get latest blockhash: %w", err)
		}

		tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(o.wallet.PublicKey))
		if err != nil {
			return solana.Signature{}, backoff.Permanent(fmt.Errorf("build transaction: %w", err))
		}
		if err := o.wallet.SignTransaction(tx, extraSigners...); err != nil {
			return solana.Signature{}, backoff.Permanent(fmt.Errorf("sign transaction: %w", err))
		}

		sig, err := o.client.SendTransaction(ctx, tx)
		if err != nil {
			if isBlockhashNotFoundError(err) {
				return solana.Signature{}, err
			}
			if isAlreadyExistsError(err) {
				// The setup instruction found its account already created;
				// that is the state we were establishing. Report the earlier
				// attempt that landed it, if any.
				o.logger.Info("account already exists, treating as success",
					zap.String("landed_signature", lastSig.String()))
				return lastSig, nil
			}
			if isProgramRejectionError(err) {
				return solana.Signature{}, backoff.Permanent(&TransactionRejectedError{Signature: sig, Err: err})
			}
			return solana.Signature{}, err
		}
		lastSig = sig

		if err := o.client.WaitForTransactionConfirmation(ctx, sig); err != nil {
			if isProgramRejectionError(err) {
				return solana.Signature{}, backoff.Permanent(&TransactionRejectedError{Signature: sig, Err: err})
			}
			o.logger.Warn("confirmation not reached, retrying",
				zap.String("signature", sig.String()),
				zap.Error(err))
			return solana.Signature{}, err
		}
		return sig, nil
	}

	return backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(o.opts.SubmitAttempts)),
	)
}

func (o *Orchestrator) txURL(sig solana.Signature) string {
	if o.opts.ExplorerTxURL == nil {
		return ""
	}
	return o.opts.ExplorerTxURL(sig.String())
}
