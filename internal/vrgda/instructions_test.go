package vrgda

import (
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuyInstruction(t *testing.T) {
	params := &BuyInstructionParams{
		ProgramID:         testProgramID,
		Buyer:             solana.NewWallet().PublicKey(),
		Auction:           solana.NewWallet().PublicKey(),
		Mint:              solana.NewWallet().PublicKey(),
		WsolMint:          solana.SolMint,
		BuyerWsolAccount:  solana.NewWallet().PublicKey(),
		BuyerTokenAccount: solana.NewWallet().PublicKey(),
		AuctionVault:      solana.NewWallet().PublicKey(),
		AuctionSolAccount: solana.NewWallet().PublicKey(),
		Authority:         solana.NewWallet().PublicKey(),
		AmountBaseUnits:   5_000_000,
	}

	ix := newBuyInstruction(params)
	assert.Equal(t, testProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 16)
	assert.Equal(t, buyDiscriminator, data[:8])
	assert.Equal(t, uint64(5_000_000), bin.LE.Uint64(data[8:16]))

	accounts := ix.Accounts()
	require.Len(t, accounts, 13)

	// Buyer is the only signer and pays for everything.
	assert.Equal(t, params.Buyer, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[0].IsWritable)

	assert.Equal(t, params.Auction, accounts[1].PublicKey)
	assert.Equal(t, params.Mint, accounts[2].PublicKey)
	assert.Equal(t, params.WsolMint, accounts[3].PublicKey)
	assert.Equal(t, params.BuyerWsolAccount, accounts[4].PublicKey)
	assert.Equal(t, params.BuyerTokenAccount, accounts[5].PublicKey)
	assert.Equal(t, params.AuctionVault, accounts[6].PublicKey)
	assert.Equal(t, params.AuctionSolAccount, accounts[7].PublicKey)
	assert.Equal(t, params.Authority, accounts[8].PublicKey)
	assert.False(t, accounts[8].IsSigner)
	assert.Equal(t, solana.TokenProgramID, accounts[9].PublicKey)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, accounts[10].PublicKey)
	assert.Equal(t, solana.SystemProgramID, accounts[11].PublicKey)
	assert.Equal(t, solana.SysVarRentPubkey, accounts[12].PublicKey)
}

func TestNewInitializeInstruction(t *testing.T) {
	params := &InitializeInstructionParams{
		ProgramID:            testProgramID,
		Authority:            solana.NewWallet().PublicKey(),
		Auction:              solana.NewWallet().PublicKey(),
		AuctionVault:         solana.NewWallet().PublicKey(),
		Mint:                 solana.NewWallet().PublicKey(),
		AuctionSolAccount:    solana.NewWallet().PublicKey(),
		MetadataProgram:      testMetaplex,
		Metadata:             solana.NewWallet().PublicKey(),
		WsolMint:             solana.SolMint,
		TargetPriceWad:       PriceToWad(0.5),
		DecayConstantPercent: 30,
		StartTimestamp:       1_700_000_100,
		TotalSupplyBaseUnits: 1000 * TokenBaseUnits,
		UnitsPerPeriod:       10,
		Name:                 "Launch",
		Symbol:               "LNCH",
		URI:                  "https://example.com/meta.json",
	}

	ix, err := newInitializeInstruction(params)
	require.NoError(t, err)
	assert.Equal(t, testProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, initializeDiscriminator, data[:8])

	// Fixed-width args follow the discriminator in declaration order.
	dec := bin.NewBorshDecoder(data[8:])
	targetPrice, err := dec.ReadUint128(bin.LE)
	require.NoError(t, err)
	assert.Equal(t, params.TargetPriceWad, targetPrice)

	decay, err := dec.ReadUint64(bin.LE)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), decay)

	start, err := dec.ReadInt64(bin.LE)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_100), start)

	supply, err := dec.ReadUint64(bin.LE)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000*TokenBaseUnits), supply)

	rate, err := dec.ReadUint64(bin.LE)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), rate)

	for _, want := range []string{"Launch", "LNCH", "https://example.com/meta.json"} {
		got, err := dec.ReadString()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.False(t, dec.HasRemaining())

	accounts := ix.Accounts()
	require.Len(t, accounts, 12)

	// Authority and the fresh mint both sign.
	assert.Equal(t, params.Authority, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.Equal(t, params.Auction, accounts[1].PublicKey)
	assert.Equal(t, params.AuctionVault, accounts[2].PublicKey)
	assert.Equal(t, params.Mint, accounts[3].PublicKey)
	assert.True(t, accounts[3].IsSigner)
	assert.Equal(t, params.AuctionSolAccount, accounts[4].PublicKey)
	assert.Equal(t, params.MetadataProgram, accounts[5].PublicKey)
	assert.Equal(t, params.Metadata, accounts[6].PublicKey)
	assert.Equal(t, params.WsolMint, accounts[7].PublicKey)
	assert.Equal(t, solana.SystemProgramID, accounts[8].PublicKey)
	assert.Equal(t, solana.TokenProgramID, accounts[9].PublicKey)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, accounts[10].PublicKey)
	assert.Equal(t, solana.SysVarRentPubkey, accounts[11].PublicKey)
}

func TestNewCloseAuctionInstruction(t *testing.T) {
	params := &CloseInstructionParams{
		ProgramID:         testProgramID,
		Authority:         solana.NewWallet().PublicKey(),
		Auction:           solana.NewWallet().PublicKey(),
		AuctionVault:      solana.NewWallet().PublicKey(),
		AuctionSolAccount: solana.NewWallet().PublicKey(),
		Mint:              solana.NewWallet().PublicKey(),
		WsolMint:          solana.SolMint,
	}

	ix := newCloseAuctionInstruction(params)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, closeAuctionDiscriminator, data)

	accounts := ix.Accounts()
	require.Len(t, accounts, 10)
	assert.Equal(t, params.Authority, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.Equal(t, params.Mint, accounts[4].PublicKey)
	assert.Equal(t, solana.SysVarRentPubkey, accounts[9].PublicKey)
}
