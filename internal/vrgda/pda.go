package vrgda

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// auctionSeed is the program's PDA seed prefix for auction state accounts.
var auctionSeed = []byte("vrgda")

// metadataSeed is the Metaplex token-metadata PDA seed prefix.
var metadataSeed = []byte("metadata")

// DeriveAuctionAddress derives the auction state PDA for a mint and
// authority pair. The derivation is deterministic; equal inputs always
// produce the same address and bump.
func DeriveAuctionAddress(programID, mint, authority solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{auctionSeed, mint.Bytes(), authority.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive auction address: %w", err)
	}
	return addr, bump, nil
}

// DeriveAssociatedTokenAddress derives the associated token account for
// an owner and mint.
func DeriveAssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive associated token address: %w", err)
	}
	return addr, nil
}

// DeriveMetadataAddress derives the Metaplex metadata PDA for a mint.
func DeriveMetadataAddress(metadataProgramID, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{metadataSeed, metadataProgramID.Bytes(), mint.Bytes()},
		metadataProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive metadata address: %w", err)
	}
	return addr, nil
}
