// Package wallet handles keypair loading and transaction signing.
package wallet

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Wallet holds a Solana keypair and a cache of derived associated token
// account addresses.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	mu       sync.RWMutex
	ataCache map[string]solana.PublicKey
}

// NewWallet creates a wallet from a base58-encoded private key.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
		ataCache:   make(map[string]solana.PublicKey),
	}, nil
}

// NewWalletFromFile creates a wallet from a solana-keygen JSON keypair
// file.
func NewWalletFromFile(path string) (*Wallet, error) {
	privateKey, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair file: %w", err)
	}
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
		ataCache:   make(map[string]solana.PublicKey),
	}, nil
}

// SignTransaction signs tx with the wallet key and any extra keypairs
// the transaction requires (for example a fresh mint keypair).
func (w *Wallet) SignTransaction(tx *solana.Transaction, extraSigners ...solana.PrivateKey) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		for i := range extraSigners {
			if key.Equals(extraSigners[i].PublicKey()) {
				return &extraSigners[i]
			}
		}
		return nil
	})
	return err
}

// GetATA returns the associated token account address of this wallet for
// the given mint, memoized across calls.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	mintStr := mint.String()

	w.mu.RLock()
	ata, ok := w.ataCache[mintStr]
	w.mu.RUnlock()
	if ok {
		return ata, nil
	}

	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	w.mu.Lock()
	w.ataCache[mintStr] = ata
	w.mu.Unlock()
	return ata, nil
}

// CreateAssociatedTokenAccountIdempotentInstruction builds the
// CreateIdempotent instruction of the associated-token program. It
// succeeds even when the account already exists, which keeps setup
// transactions safe to resubmit.
func CreateAssociatedTokenAccountIdempotentInstruction(payer, owner, mint solana.PublicKey) solana.Instruction {
	ata, _, _ := solana.FindAssociatedTokenAddress(owner, mint)

	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		[]*solana.AccountMeta{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SysVarRentPubkey, IsWritable: false, IsSigner: false},
		},
		[]byte{1}, // instruction code 1: CreateIdempotent
	)
}

// String returns the wallet's public key.
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
