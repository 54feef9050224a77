package vrgda

import (
	"context"
	"errors"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/vrgda-labs/vrgda-go/internal/blockchain"
)

const (
	metadataCacheSize = 512
	metadataCacheTTL  = 5 * time.Minute
)

// TokenMetadata is the display metadata of an auctioned token.
type TokenMetadata struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri"`
}

// placeholderMetadata is used when a mint has no metadata account or the
// account fails to decode. Listings never fail over missing metadata.
var placeholderMetadata = TokenMetadata{
	Name:   "VRGDA Token",
	Symbol: "VRGDA",
	URI:    "",
}

// metadataResolver fetches Metaplex token metadata with a bounded
// expiring cache in front of the RPC node.
type metadataResolver struct {
	client            blockchain.Client
	metadataProgramID solana.PublicKey
	cache             *lru.LRU[string, TokenMetadata]
	logger            *zap.Logger
}

func newMetadataResolver(client blockchain.Client, metadataProgramID solana.PublicKey, logger *zap.Logger) *metadataResolver {
	return &metadataResolver{
		client:            client,
		metadataProgramID: metadataProgramID,
		cache:             lru.NewLRU[string, TokenMetadata](metadataCacheSize, nil, metadataCacheTTL),
		logger:            logger.Named("metadata"),
	}
}

// Resolve returns the metadata for a mint, falling back to a placeholder
// when the metadata account is absent or malformed.
func (r *metadataResolver) Resolve(ctx context.Context, mint solana.PublicKey) TokenMetadata {
	key := mint.String()
	if meta, ok := r.cache.Get(key); ok {
		return meta
	}

	meta, err := r.fetch(ctx, mint)
	if err != nil {
		if !errors.Is(err, blockchain.ErrAccountNotFound) {
			r.logger.Debug("metadata fetch failed",
				zap.String("mint", key),
				zap.Error(err))
		}
		return placeholderMetadata
	}

	r.cache.Add(key, meta)
	return meta
}

func (r *metadataResolver) fetch(ctx context.Context, mint solana.PublicKey) (TokenMetadata, error) {
	addr, err := DeriveMetadataAddress(r.metadataProgramID, mint)
	if err != nil {
		return TokenMetadata{}, err
	}

	info, err := r.client.GetAccountInfo(ctx, addr)
	if err != nil {
		return TokenMetadata{}, err
	}

	meta, err := decodeTokenMetadata(info.Data)
	if err != nil {
		return TokenMetadata{}, &DecodeError{Account: addr, Reason: "metadata decode failed", Err: err}
	}
	return meta, nil
}

// decodeTokenMetadata reads the leading fields of a Metaplex metadata
// account: key, update authority, mint, then the three display strings.
// The strings are stored at fixed capacity and null padded.
func decodeTokenMetadata(data []byte) (TokenMetadata, error) {
	dec := bin.NewBorshDecoder(data)

	// key (1) + update authority (32) + mint (32)
	if err := dec.SkipBytes(1 + 32 + 32); err != nil {
		return TokenMetadata{}, err
	}

	var meta TokenMetadata
	for _, dst := range []*string{&meta.Name, &meta.Symbol, &meta.URI} {
		s, err := dec.ReadString()
		if err != nil {
			return TokenMetadata{}, err
		}
		*dst = strings.TrimRight(s, "\x00")
	}
	return meta, nil
}
