// Package blockchain defines the narrow ledger interface the auction
// client consumes, so transaction flows can be tested against fakes.
package blockchain

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrAccountNotFound is returned when the requested account does not
// exist on the cluster at the queried commitment.
var ErrAccountNotFound = errors.New("account not found")

// AccountInfo is the subset of on-chain account state the client reads.
type AccountInfo struct {
	Owner    solana.PublicKey
	Data     []byte
	Lamports uint64
}

// ProgramAccount pairs a program-owned account with its raw data.
type ProgramAccount struct {
	Pubkey solana.PublicKey
	Data   []byte
}

// Client is the RPC surface used by the auction reader and orchestrator.
type Client interface {
	// GetLatestBlockhash returns a blockhash usable for signing a new
	// transaction.
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)

	// GetAccountInfo fetches one account, returning ErrAccountNotFound
	// when it does not exist.
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*AccountInfo, error)

	// GetProgramAccounts scans all accounts owned by programID whose data
	// starts with the given discriminator.
	GetProgramAccounts(ctx context.Context, programID solana.PublicKey, discriminator []byte) ([]ProgramAccount, error)

	// GetMinimumBalanceForRentExemption returns the lamports needed to
	// make an account of the given size rent exempt.
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)

	// SendTransaction submits a signed transaction.
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)

	// WaitForTransactionConfirmation blocks until the signature reaches
	// confirmed commitment or the context expires.
	WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature) error
}
