package vrgda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vrgda-labs/vrgda-go/internal/blockchain"
	"github.com/vrgda-labs/vrgda-go/internal/wallet"
)

func newTestOrchestrator(t *testing.T, chain blockchain.Client) *Orchestrator {
	return newTestOrchestratorWithLogger(t, chain, zap.NewNop())
}

func newTestOrchestratorWithLogger(t *testing.T, chain blockchain.Client, log *zap.Logger) *Orchestrator {
	t.Helper()
	w, err := wallet.NewWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)

	o := NewOrchestrator(chain, w, newTestReader(chain), OrchestratorOptions{
		ProgramID:         testProgramID,
		MetadataProgramID: testMetaplex,
		WsolMint:          solana.SolMint,
		SubmitAttempts:    3,
		ComputeUnitLimit:  2_000_000,
		ExplorerTxURL: func(sig string) string {
			return "https://explorer.solana.com/tx/" + sig + "?cluster=devnet"
		},
	}, log)
	o.now = func() time.Time { return time.Unix(1_700_000_200, 0) }
	return o
}

func validInitializeParams() *InitializeParams {
	return &InitializeParams{
		Mint:           solana.NewWallet().PrivateKey,
		TargetPrice:    0.5,
		DecayConstant:  0.3,
		UnitsPerPeriod: 10,
		TotalSupply:    1000,
		Name:           "Launch",
		Symbol:         "LNCH",
		URI:            "https://example.com/meta.json",
	}
}

// mintAccountData builds a raw SPL mint account with the given authority.
func mintAccountData(authority solana.PublicKey, decimals uint8) []byte {
	data := make([]byte, mintAccountSize)
	data[0] = 1 // mint authority present
	copy(data[4:36], authority.Bytes())
	data[44] = decimals
	return data
}

func TestInitializeValidation(t *testing.T) {
	chain := newFakeChain()
	o := newTestOrchestrator(t, chain)

	cases := []struct {
		name    string
		mutate  func(*InitializeParams)
		message string
	}{
		{"zero decay", func(p *InitializeParams) { p.DecayConstant = 0 }, "Decay constant must be greater than 0"},
		{"decay of one", func(p *InitializeParams) { p.DecayConstant = 1 }, "Decay constant must be less than 1"},
		{"zero rate", func(p *InitializeParams) { p.UnitsPerPeriod = 0 }, "r must be greater than 0"},
		{"zero target price", func(p *InitializeParams) { p.TargetPrice = 0 }, "Target price must be greater than 0"},
		{"zero supply", func(p *InitializeParams) { p.TotalSupply = 0 }, "Total supply must be greater than 0"},
		{"oversized supply", func(p *InitializeParams) { p.TotalSupply = 1e15 + 1 }, "Total supply must be less than 1e15"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validInitializeParams()
			tc.mutate(params)

			_, err := o.Initialize(context.Background(), params)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.message, validationErr.Message)
			// Validation failures never reach the network.
			assert.Empty(t, chain.sent)
		})
	}
}

func TestInitializeAuctionAlreadyExists(t *testing.T) {
	chain := newFakeChain()
	o := newTestOrchestrator(t, chain)

	params := validInitializeParams()
	auction, _, err := DeriveAuctionAddress(testProgramID, params.Mint.PublicKey(), o.wallet.PublicKey)
	require.NoError(t, err)
	chain.accounts[auction] = &blockchain.AccountInfo{Owner: testProgramID}

	_, err = o.Initialize(context.Background(), params)
	assert.ErrorIs(t, err, ErrAuctionAlreadyExists)
	assert.Empty(t, chain.sent)
}

func TestInitializeMintAuthorityMismatch(t *testing.T) {
	chain := newFakeChain()
	o := newTestOrchestrator(t, chain)

	params := validInitializeParams()
	otherAuthority := solana.NewWallet().PublicKey()
	chain.accounts[params.Mint.PublicKey()] = &blockchain.AccountInfo{
		Owner: solana.TokenProgramID,
		Data:  mintAccountData(otherAuthority, 6),
	}

	_, err := o.Initialize(context.Background(), params)
	assert.ErrorIs(t, err, ErrMintAuthorityMismatch)
	assert.Empty(t, chain.sent)
}

func TestInitializeMintDecimalMismatchIsNonFatal(t *testing.T) {
	chain := newFakeChain()
	core, logs := observer.New(zapcore.WarnLevel)
	o := newTestOrchestratorWithLogger(t, chain, zap.New(core))

	params := validInitializeParams()
	chain.accounts[params.Mint.PublicKey()] = &blockchain.AccountInfo{
		Owner: solana.TokenProgramID,
		Data:  mintAccountData(o.wallet.PublicKey, 9),
	}

	// A decimal mismatch on an existing mint is warned about, not fatal.
	result, err := o.Initialize(context.Background(), params)
	require.NoError(t, err)
	assert.Len(t, chain.sent, 1)
	assert.False(t, result.Signature.IsZero())
	assert.Equal(t, 1, logs.FilterMessage("existing mint has unexpected decimals").Len())
}

func TestBuildInitializeInstructionsFreshMint(t *testing.T) {
	chain := newFakeChain()
	o := newTestOrchestrator(t, chain)

	params := validInitializeParams()
	mint := params.Mint.PublicKey()
	auction, _, err := DeriveAuctionAddress(testProgramID, mint, o.wallet.PublicKey)
	require.NoError(t, err)

	instructions, err := o.buildInitializeInstructions(context.Background(), params, o.wallet.PublicKey, mint, auction)
	require.NoError(t, err)

	// create mint account, initialize mint, create wrapped-SOL account,
	// initialize the auction.
	require.Len(t, instructions, 4)
	assert.Equal(t, solana.SystemProgramID, instructions[0].ProgramID())
	assert.Equal(t, solana.TokenProgramID, instructions[1].ProgramID())
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, instructions[2].ProgramID())
	assert.Equal(t, testProgramID, instructions[3].ProgramID())

	// The mint initialization carries InitializeMint2 with 6 decimals and
	// the wallet as authority.
	data, err := instructions[1].Data()
	require.NoError(t, err)
	assert.Equal(t, byte(tokenInitializeMint2Index), data[0])
	assert.Equal(t, byte(expectedMintDecimals), data[1])
	assert.Equal(t, o.wallet.PublicKey.Bytes(), []byte(data[2:34]))
}

func TestBuildInitializeInstructionsExistingMint(t *testing.T) {
	chain := newFakeChain()
	o := newTestOrchestrator(t, chain)

	params := validInitializeParams()
	mint := params.Mint.PublicKey()
	chain.accounts[mint] = &blockchain.AccountInfo{
		Owner: solana.TokenProgramID,
		Data:  mintAccountData(o.wallet.PublicKey, 6),
	}

	wsolAta, err := DeriveAssociatedTokenAddress(o.wallet.PublicKey, solana.SolMint)
	require.NoError(t, err)
	chain.accounts[wsolAta] = &blockchain.AccountInfo{Owner: solana.TokenProgramID}

	auction, _, err := DeriveAuctionAddress(testProgramID, mint, o.wallet.PublicKey)
	require.NoError(t, err)

	instructions, err := o.buildInitializeInstructions(context.Background(), params, o.wallet.PublicKey, mint, auction)
	require.NoError(t, err)

	// Everything already exists: only the auction initialization remains.
	require.Len(t, instructions, 1)
	assert.Equal(t, testProgramID, instructions[0].ProgramID())
}

func TestInitializeSubmits(t *testing.T) {
	chain := newFakeChain()
	o := newTestOrchestrator(t, chain)

	params := validInitializeParams()
	result, err := o.Initialize(context.Background(), params)
	require.NoError(t, err)

	assert.Len(t, chain.sent, 1)
	assert.Equal(t, params.Mint.PublicKey(), result.Mint)
	assert.Equal(t, o.wallet.PublicKey, result.Authority)
	assert.False(t, result.Signature.IsZero())
	assert.Contains(t, result.TxURL, result.Signature.String())
}

func TestBuyValidation(t *testing.T) {
	chain := newFakeChain()
	o := newTestOrchestrator(t, chain)

	_, err := o.Buy(context.Background(), &BuyParams{Auction: solana.NewWallet().PublicKey(), Amount: 0})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "Amount must be greater than 0", validationErr.Message)
	assert.Empty(t, chain.sent)
}

func TestBuyAuctionNotFound(t *testing.T) {
	o := newTestOrchestrator(t, newFakeChain())

	_, err := o.Buy(context.Background(), &BuyParams{Auction: solana.NewWallet().PublicKey(), Amount: 5})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestBuySubmits(t *testing.T) {
	chain := newFakeChain()
	o := newTestOrchestrator(t, chain)

	auction := solana.NewWallet().PublicKey()
	state := sampleAuctionState()
	chain.accounts[auction] = &blockchain.AccountInfo{
		Owner: testProgramID,
		Data:  encodeAuctionAccount(t, state),
	}

	result, err := o.Buy(context.Background(), &BuyParams{Auction: auction, Amount: 5})
	require.NoError(t, err)

	require.Len(t, chain.sent, 1)
	// compute budget limit, buyer wrapped-SOL setup, buy.
	assert.Len(t, chain.sent[0].Message.Instructions, 3)

	expectedDest, err := DeriveAssociatedTokenAddress(o.wallet.PublicKey, state.Mint)
	require.NoError(t, err)
	assert.Equal(t, expectedDest, result.Destination)
	assert.Equal(t, uint64(5), result.Amount)
	assert.Greater(t, result.EstimatedCost, 0.0)
}

func TestBuySkipsWsolSetupWhenAccountExists(t *testing.T) {
	chain := newFakeChain()
	o := newTestOrchestrator(t, chain)

	auction := solana.NewWallet().PublicKey()
	chain.accounts[auction] = &blockchain.AccountInfo{
		Owner: testProgramID,
		Data:  encodeAuctionAccount(t, sampleAuctionState()),
	}

	wsolAta, err := DeriveAssociatedTokenAddress(o.wallet.PublicKey, solana.SolMint)
	require.NoError(t, err)
	chain.accounts[wsolAta] = &blockchain.AccountInfo{Owner: solana.TokenProgramID}

	_, err = o.Buy(context.Background(), &BuyParams{Auction: auction, Amount: 5})
	require.NoError(t, err)

	require.Len(t, chain.sent, 1)
	assert.Len(t, chain.sent[0].Message.Instructions, 2)
}

func TestSubmitRetriesOnStaleBlockhash(t *testing.T) {
	chain := newFakeChain()
	chain.sendErrs = []error{errors.New("BlockhashNotFound"), nil}
	o := newTestOrchestrator(t, chain)

	auction := solana.NewWallet().PublicKey()
	chain.accounts[auction] = &blockchain.AccountInfo{
		Owner: testProgramID,
		Data:  encodeAuctionAccount(t, sampleAuctionState()),
	}

	_, err := o.Buy(context.Background(), &BuyParams{Auction: auction, Amount: 1})
	require.NoError(t, err)
	assert.Len(t, chain.sent, 2)
}

func TestSubmitAlreadyExistsReportsLandedSignature(t *testing.T) {
	chain := newFakeChain()
	// The first attempt lands but its confirmation times out; the resend is
	// rejected because the account the first attempt created already
	// exists. The result must carry the first attempt's signature.
	chain.confirmErrs = []error{errors.New("confirmation timeout")}
	chain.sendErrs = []error{nil, errors.New("Allocate: account Address already in use")}
	o := newTestOrchestrator(t, chain)

	auction := solana.NewWallet().PublicKey()
	chain.accounts[auction] = &blockchain.AccountInfo{
		Owner: testProgramID,
		Data:  encodeAuctionAccount(t, sampleAuctionState()),
	}

	result, err := o.Buy(context.Background(), &BuyParams{Auction: auction, Amount: 1})
	require.NoError(t, err)
	assert.Len(t, chain.sent, 2)
	assert.Equal(t, solana.Signature{1}, result.Signature)
	assert.Contains(t, result.TxURL, result.Signature.String())
}

func TestSubmitStopsOnProgramRejection(t *testing.T) {
	chain := newFakeChain()
	chain.sendErrs = []error{errors.New("custom program error: 0x177b")}
	o := newTestOrchestrator(t, chain)

	auction := solana.NewWallet().PublicKey()
	chain.accounts[auction] = &blockchain.AccountInfo{
		Owner: testProgramID,
		Data:  encodeAuctionAccount(t, sampleAuctionState()),
	}

	_, err := o.Buy(context.Background(), &BuyParams{Auction: auction, Amount: 1})
	var rejected *TransactionRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Len(t, chain.sent, 1)
}

func TestCloseAuctionRequiresAuthority(t *testing.T) {
	chain := newFakeChain()
	o := newTestOrchestrator(t, chain)

	auction := solana.NewWallet().PublicKey()
	chain.accounts[auction] = &blockchain.AccountInfo{
		Owner: testProgramID,
		Data:  encodeAuctionAccount(t, sampleAuctionState()),
	}

	_, err := o.CloseAuction(context.Background(), auction)
	assert.ErrorIs(t, err, ErrMintAuthorityMismatch)
	assert.Empty(t, chain.sent)
}

func TestCloseAuctionSubmits(t *testing.T) {
	chain := newFakeChain()
	o := newTestOrchestrator(t, chain)

	auction := solana.NewWallet().PublicKey()
	state := sampleAuctionState()
	state.Authority = o.wallet.PublicKey
	chain.accounts[auction] = &blockchain.AccountInfo{
		Owner: testProgramID,
		Data:  encodeAuctionAccount(t, state),
	}

	result, err := o.CloseAuction(context.Background(), auction)
	require.NoError(t, err)
	assert.Equal(t, auction, result.Auction)
	assert.Len(t, chain.sent, 1)
}
