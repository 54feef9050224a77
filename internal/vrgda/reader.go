package vrgda

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vrgda-labs/vrgda-go/internal/blockchain"
)

const (
	// DefaultPaginationLimit is the page size used when none is given.
	DefaultPaginationLimit = 30
	// MaxPaginationLimit caps the page size.
	MaxPaginationLimit = 100
	// AuctionDurationDays is the fixed auction lifetime used to derive
	// the end time shown on listings.
	AuctionDurationDays = 7

	metadataFetchParallelism = 8
)

// AuctionInfo is the display-oriented view of one auction, with amounts
// in whole tokens and prices in SOL.
type AuctionInfo struct {
	AuctionAddress  string        `json:"vrgdaAddress"`
	MintAddress     string        `json:"mintAddress"`
	Authority       string        `json:"authority"`
	TotalSupply     float64       `json:"totalSupply"`
	TokensSold      float64       `json:"tokensSold"`
	RemainingSupply float64       `json:"remainingSupply"`
	TargetPrice     float64       `json:"targetPrice"`
	CurrentPrice    float64       `json:"currentPrice"`
	DecayConstant   float64       `json:"decayConstant"`
	UnitsPerPeriod  float64       `json:"r"`
	ReservePrice    float64       `json:"reservePrice"`
	StartTime       int64         `json:"startTime"`
	TimePassed      int64         `json:"timePassed"`
	AuctionEndTime  int64         `json:"auctionEndTime"`
	IsActive        bool          `json:"isAuctionActive"`
	Metadata        TokenMetadata `json:"metadata"`
}

// PageInfo describes the position of a page within the full listing.
type PageInfo struct {
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	TotalItems      int  `json:"totalItems"`
	ItemsPerPage    int  `json:"itemsPerPage"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// PaginatedAuctions is one page of the auction listing.
type PaginatedAuctions struct {
	Items      []*AuctionInfo `json:"items"`
	Pagination PageInfo       `json:"pagination"`
}

// Reader fetches and decodes auction state from the cluster.
type Reader struct {
	client    blockchain.Client
	programID solana.PublicKey
	metadata  *metadataResolver
	logger    *zap.Logger
	now       func() time.Time
}

// NewReader creates a reader for one program deployment.
func NewReader(client blockchain.Client, programID, metadataProgramID solana.PublicKey, logger *zap.Logger) *Reader {
	return &Reader{
		client:    client,
		programID: programID,
		metadata:  newMetadataResolver(client, metadataProgramID, logger),
		logger:    logger.Named("reader"),
		now:       time.Now,
	}
}

// Fetch returns the decoded auction account at addr. It returns
// ErrAccountNotFound when the account does not exist, and a DecodeError
// when it exists but does not hold a well-formed auction account.
func (r *Reader) Fetch(ctx context.Context, addr solana.PublicKey) (*AuctionState, error) {
	info, err := r.client.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, blockchain.ErrAccountNotFound) {
			return nil, fmt.Errorf("auction %s: %w", addr, ErrAccountNotFound)
		}
		return nil, &RPCError{Method: "getAccountInfo", Err: err}
	}
	if !info.Owner.Equals(r.programID) {
		return nil, fmt.Errorf("auction %s owned by %s: %w", addr, info.Owner, ErrInvalidAccountOwner)
	}
	return DecodeAuctionState(addr, info.Data)
}

// GetInfo fetches one auction and transforms it for display, including
// its token metadata.
func (r *Reader) GetInfo(ctx context.Context, addr solana.PublicKey) (*AuctionInfo, error) {
	state, err := r.Fetch(ctx, addr)
	if err != nil {
		return nil, err
	}
	return r.transform(ctx, addr, state), nil
}

// ListAll returns every auction of the program, newest first. Accounts
// that fail to decode are skipped with a warning rather than failing the
// whole listing.
func (r *Reader) ListAll(ctx context.Context) ([]*AuctionInfo, error) {
	accounts, err := r.client.GetProgramAccounts(ctx, r.programID, auctionAccountDiscriminator)
	if err != nil {
		return nil, &RPCError{Method: "getProgramAccounts", Err: err}
	}

	type decoded struct {
		addr  solana.PublicKey
		state *AuctionState
	}
	states := make([]decoded, 0, len(accounts))
	for _, acc := range accounts {
		state, err := DecodeAuctionState(acc.Pubkey, acc.Data)
		if err != nil {
			r.logger.Warn("skipping undecodable auction account",
				zap.String("account", acc.Pubkey.String()),
				zap.Error(err))
			continue
		}
		states = append(states, decoded{addr: acc.Pubkey, state: state})
	}

	infos := make([]*AuctionInfo, len(states))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(metadataFetchParallelism)
	for i, d := range states {
		g.Go(func() error {
			infos[i] = r.transform(gctx, d.addr, d.state)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].StartTime > infos[j].StartTime
	})
	return infos, nil
}

// Paginate returns one page of the full listing. Pages are 1-based.
func (r *Reader) Paginate(ctx context.Context, page, limit int) (*PaginatedAuctions, error) {
	if limit == 0 {
		limit = DefaultPaginationLimit
	}
	if err := validatePagination(page, limit); err != nil {
		return nil, err
	}

	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	totalItems := len(all)
	totalPages := (totalItems + limit - 1) / limit
	start := (page - 1) * limit
	end := start + limit
	if start > totalItems {
		start = totalItems
	}
	if end > totalItems {
		end = totalItems
	}

	return &PaginatedAuctions{
		Items: all[start:end],
		Pagination: PageInfo{
			CurrentPage:     page,
			TotalPages:      totalPages,
			TotalItems:      totalItems,
			ItemsPerPage:    limit,
			HasNextPage:     page < totalPages,
			HasPreviousPage: page > 1,
		},
	}, nil
}

func validatePagination(page, limit int) error {
	if page <= 0 {
		return newValidationError("page", "Page must be greater than 0")
	}
	if limit < 1 || limit > MaxPaginationLimit {
		return newValidationError("limit", fmt.Sprintf("Limit must be between 1 and %d", MaxPaginationLimit))
	}
	return nil
}

// transform converts the on-chain account into its display view. The
// stored total supply counts only unsold tokens; the displayed total adds
// back what was sold.
func (r *Reader) transform(ctx context.Context, addr solana.PublicKey, state *AuctionState) *AuctionInfo {
	now := r.now().Unix()
	startTime := state.VrgdaStartTimestamp
	timePassed := now - startTime
	if timePassed < 0 {
		timePassed = 0
	}

	tokensSold := BaseUnitsToTokens(state.TokensSold)
	totalSupply := BaseUnitsToTokens(state.TotalSupply + state.TokensSold)
	params := state.PricingParams()

	return &AuctionInfo{
		AuctionAddress:  addr.String(),
		MintAddress:     state.Mint.String(),
		Authority:       state.Authority.String(),
		TotalSupply:     totalSupply,
		TokensSold:      tokensSold,
		RemainingSupply: totalSupply - tokensSold,
		TargetPrice:     params.TargetPrice,
		CurrentPrice:    float64(state.CurrentPrice) / (LamportsPerSol * LamportsPerSol),
		DecayConstant:   params.DecayConstant,
		UnitsPerPeriod:  params.UnitsPerPeriod,
		ReservePrice:    params.ReservePrice,
		StartTime:       startTime,
		TimePassed:      timePassed,
		AuctionEndTime:  startTime + AuctionDurationDays*24*60*60,
		IsActive:        state.IsActive(),
		Metadata:        r.metadata.Resolve(ctx, state.Mint),
	}
}
