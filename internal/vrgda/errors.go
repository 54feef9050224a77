package vrgda

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Sentinel errors returned by the client.
var (
	ErrWalletNotConnected    = errors.New("wallet not connected")
	ErrAuctionAlreadyExists  = errors.New("auction already exists for this mint and authority")
	ErrMintAuthorityMismatch = errors.New("mint authority does not match wallet")
	ErrAccountNotFound       = errors.New("account not found")
	ErrInvalidAccountOwner   = errors.New("account is not owned by the auction program")
)

// ValidationError reports a parameter that failed pre-flight validation.
// Nothing was sent to the network when this error is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// DecodeError reports on-chain account data that could not be decoded
// into the expected layout.
type DecodeError struct {
	Account solana.PublicKey
	Reason  string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode account %s: %s: %v", e.Account, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode account %s: %s", e.Account, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TransactionRejectedError reports a transaction that the cluster accepted
// for processing but the program rejected. Retrying the same transaction
// will not help.
type TransactionRejectedError struct {
	Signature solana.Signature
	Logs      []string
	Err       error
}

func (e *TransactionRejectedError) Error() string {
	return fmt.Sprintf("transaction %s rejected by program: %v", e.Signature, e.Err)
}

func (e *TransactionRejectedError) Unwrap() error {
	return e.Err
}

// RPCError wraps a transport-level failure talking to the RPC node.
type RPCError struct {
	Method string
	Err    error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s: %v", e.Method, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// isAlreadyExistsError recognizes the program error produced when an
// idempotent setup instruction races a previous transaction. The account
// being present is the state we wanted, so callers treat this as success.
func isAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already in use") ||
		strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "already initialized")
}

// isBlockhashNotFoundError recognizes a stale-blockhash rejection, which is
// resolved by re-fetching a fresh blockhash and resubmitting.
func isBlockhashNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "BlockhashNotFound") ||
		strings.Contains(err.Error(), "Blockhash not found")
}

// isProgramRejectionError recognizes instruction-level failures that no
// amount of resubmission can fix.
func isProgramRejectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "custom program error") ||
		strings.Contains(msg, "InstructionError") ||
		strings.Contains(msg, "insufficient funds") ||
		strings.Contains(msg, "insufficient lamports")
}
