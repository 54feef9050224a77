// Package solbc is a thin adapter over the solana-go RPC client.
package solbc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/vrgda-labs/vrgda-go/internal/blockchain"
)

const (
	confirmationPollInterval = 500 * time.Millisecond
	confirmationTimeout      = 30 * time.Second
)

// Client implements blockchain.Client against a Solana JSON-RPC node.
type Client struct {
	rpc    *rpc.Client
	logger *zap.Logger
}

// NewClient creates a client for the given RPC endpoint.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc.New(rpcURL),
		logger: logger.Named("solbc-client"),
	}
}

// GetLatestBlockhash returns the latest finalized blockhash.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// GetAccountInfo fetches one account at confirmed commitment.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*blockchain.AccountInfo, error) {
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, blockchain.ErrAccountNotFound
		}
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, blockchain.ErrAccountNotFound
	}
	return &blockchain.AccountInfo{
		Owner:    result.Value.Owner,
		Data:     result.Value.Data.GetBinary(),
		Lamports: result.Value.Lamports,
	}, nil
}

// GetProgramAccounts scans accounts owned by programID, filtered by a
// memcmp on the leading discriminator bytes. The filter must not be
// combined with a data slice or the returned data would be truncated to
// the discriminator itself.
func (c *Client) GetProgramAccounts(
	ctx context.Context,
	programID solana.PublicKey,
	discriminator []byte,
) ([]blockchain.ProgramAccount, error) {
	opts := rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	}
	if len(discriminator) > 0 {
		opts.Filters = append(opts.Filters, rpc.RPCFilter{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: 0,
				Bytes:  discriminator,
			},
		})
	}

	accounts, err := c.rpc.GetProgramAccountsWithOpts(ctx, programID, &opts)
	if err != nil {
		c.logger.Debug("GetProgramAccounts error",
			zap.String("program_id", programID.String()),
			zap.Error(err))
		return nil, err
	}

	out := make([]blockchain.ProgramAccount, 0, len(accounts))
	for _, acc := range accounts {
		if acc == nil || acc.Account == nil {
			continue
		}
		out = append(out, blockchain.ProgramAccount{
			Pubkey: acc.Pubkey,
			Data:   acc.Account.Data.GetBinary(),
		})
	}
	return out, nil
}

// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for
// an account of the given size.
func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	lamports, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, size, rpc.CommitmentFinalized)
	if err != nil {
		c.logger.Error("GetMinimumBalanceForRentExemption error", zap.Error(err))
		return 0, err
	}
	return lamports, nil
}

// SendTransaction submits a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		c.logger.Error("SendTransaction error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// WaitForTransactionConfirmation polls signature status until the
// transaction is confirmed or finalized.
func (c *Client) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature) error {
	ticker := time.NewTicker(confirmationPollInterval)
	defer ticker.Stop()
	timeout := time.After(confirmationTimeout)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("confirmation timeout for %s", signature)
		case <-ticker.C:
			statuses, err := c.rpc.GetSignatureStatuses(ctx, false, signature)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", signature, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized ||
				status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed {
				return nil
			}
		}
	}
}

var _ blockchain.Client = (*Client)(nil)
