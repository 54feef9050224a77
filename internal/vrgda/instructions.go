package vrgda

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction discriminators extracted from the IDL.
var (
	initializeDiscriminator   = []byte{103, 185, 37, 247, 54, 41, 172, 213}
	buyDiscriminator          = []byte{102, 6, 61, 18, 1, 218, 235, 234}
	closeAuctionDiscriminator = []byte{225, 129, 91, 48, 215, 73, 203, 172}
)

// InitializeInstructionParams carries everything needed to build the
// auction initialization instruction.
type InitializeInstructionParams struct {
	ProgramID         solana.PublicKey
	Authority         solana.PublicKey
	Auction           solana.PublicKey
	AuctionVault      solana.PublicKey
	Mint              solana.PublicKey
	AuctionSolAccount solana.PublicKey
	MetadataProgram   solana.PublicKey
	Metadata          solana.PublicKey
	WsolMint          solana.PublicKey

	// Curve parameters, already converted to program units.
	TargetPriceWad       bin.Uint128
	DecayConstantPercent uint64
	StartTimestamp       int64
	TotalSupplyBaseUnits uint64
	UnitsPerPeriod       uint64

	// Token metadata.
	Name   string
	Symbol string
	URI    string
}

// newInitializeInstruction builds the initializeVrgda instruction. The
// account order matches the program's accountsStrict contract.
func newInitializeInstruction(p *InitializeInstructionParams) (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(initializeDiscriminator, false); err != nil {
		return nil, fmt.Errorf("encode initialize instruction: %w", err)
	}
	if err := enc.WriteUint128(p.TargetPriceWad, bin.LE); err != nil {
		return nil, fmt.Errorf("encode initialize instruction: %w", err)
	}
	if err := enc.WriteUint64(p.DecayConstantPercent, bin.LE); err != nil {
		return nil, fmt.Errorf("encode initialize instruction: %w", err)
	}
	if err := enc.WriteInt64(p.StartTimestamp, bin.LE); err != nil {
		return nil, fmt.Errorf("encode initialize instruction: %w", err)
	}
	if err := enc.WriteUint64(p.TotalSupplyBaseUnits, bin.LE); err != nil {
		return nil, fmt.Errorf("encode initialize instruction: %w", err)
	}
	if err := enc.WriteUint64(p.UnitsPerPeriod, bin.LE); err != nil {
		return nil, fmt.Errorf("encode initialize instruction: %w", err)
	}
	for _, s := range []string{p.Name, p.Symbol, p.URI} {
		if err := enc.WriteString(s); err != nil {
			return nil, fmt.Errorf("encode initialize instruction: %w", err)
		}
	}

	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(p.Authority, true, true),
		solana.NewAccountMeta(p.Auction, true, false),
		solana.NewAccountMeta(p.AuctionVault, true, false),
		solana.NewAccountMeta(p.Mint, true, true),
		solana.NewAccountMeta(p.AuctionSolAccount, true, false),
		solana.NewAccountMeta(p.MetadataProgram, false, false),
		solana.NewAccountMeta(p.Metadata, true, false),
		solana.NewAccountMeta(p.WsolMint, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}

	return solana.NewInstruction(p.ProgramID, accounts, buf.Bytes()), nil
}

// BuyInstructionParams carries everything needed to build the buy
// instruction.
type BuyInstructionParams struct {
	ProgramID         solana.PublicKey
	Buyer             solana.PublicKey
	Auction           solana.PublicKey
	Mint              solana.PublicKey
	WsolMint          solana.PublicKey
	BuyerWsolAccount  solana.PublicKey
	BuyerTokenAccount solana.PublicKey
	AuctionVault      solana.PublicKey
	AuctionSolAccount solana.PublicKey
	Authority         solana.PublicKey

	// AmountBaseUnits is the purchase amount in mint base units.
	AmountBaseUnits uint64
}

// newBuyInstruction builds the buy instruction.
func newBuyInstruction(p *BuyInstructionParams) solana.Instruction {
	data := make([]byte, 8+8)
	copy(data[0:8], buyDiscriminator)
	bin.LE.PutUint64(data[8:16], p.AmountBaseUnits)

	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(p.Buyer, true, true),
		solana.NewAccountMeta(p.Auction, true, false),
		solana.NewAccountMeta(p.Mint, true, false),
		solana.NewAccountMeta(p.WsolMint, false, false),
		solana.NewAccountMeta(p.BuyerWsolAccount, true, false),
		solana.NewAccountMeta(p.BuyerTokenAccount, true, false),
		solana.NewAccountMeta(p.AuctionVault, true, false),
		solana.NewAccountMeta(p.AuctionSolAccount, true, false),
		solana.NewAccountMeta(p.Authority, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}

	return solana.NewInstruction(p.ProgramID, accounts, data)
}

// CloseInstructionParams carries everything needed to build the
// closeAuction instruction.
type CloseInstructionParams struct {
	ProgramID         solana.PublicKey
	Authority         solana.PublicKey
	Auction           solana.PublicKey
	AuctionVault      solana.PublicKey
	AuctionSolAccount solana.PublicKey
	Mint              solana.PublicKey
	WsolMint          solana.PublicKey
}

// newCloseAuctionInstruction builds the closeAuction instruction.
func newCloseAuctionInstruction(p *CloseInstructionParams) solana.Instruction {
	data := make([]byte, 8)
	copy(data, closeAuctionDiscriminator)

	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(p.Authority, true, true),
		solana.NewAccountMeta(p.Auction, true, false),
		solana.NewAccountMeta(p.AuctionVault, true, false),
		solana.NewAccountMeta(p.AuctionSolAccount, true, false),
		solana.NewAccountMeta(p.Mint, true, false),
		solana.NewAccountMeta(p.WsolMint, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}

	return solana.NewInstruction(p.ProgramID, accounts, data)
}
