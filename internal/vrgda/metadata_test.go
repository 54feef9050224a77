package vrgda

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vrgda-labs/vrgda-go/internal/blockchain"
)

// encodeMetadataAccount lays out the head of a Metaplex metadata
// account: key, update authority, mint, then the padded display strings.
func encodeMetadataAccount(name, symbol, uri string) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(4) // MetadataV1 key
	buf.Write(solana.NewWallet().PublicKey().Bytes())
	buf.Write(solana.NewWallet().PublicKey().Bytes())
	for _, s := range []string{name, symbol, uri} {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
		buf.Write(lenBuf[:])
		buf.WriteString(s)
	}
	return buf.Bytes()
}

func TestDecodeTokenMetadata(t *testing.T) {
	// On-chain strings are stored at fixed capacity and padded with NULs.
	data := encodeMetadataAccount("My Token\x00\x00\x00\x00", "MYT\x00\x00", "https://example.com/t.json\x00")

	meta, err := decodeTokenMetadata(data)
	require.NoError(t, err)
	assert.Equal(t, TokenMetadata{
		Name:   "My Token",
		Symbol: "MYT",
		URI:    "https://example.com/t.json",
	}, meta)
}

func TestDecodeTokenMetadataTruncated(t *testing.T) {
	_, err := decodeTokenMetadata([]byte{4, 1, 2})
	assert.Error(t, err)
}

func TestMetadataResolverFallsBackToPlaceholder(t *testing.T) {
	resolver := newMetadataResolver(newFakeChain(), testMetaplex, zap.NewNop())

	meta := resolver.Resolve(context.Background(), solana.NewWallet().PublicKey())
	assert.Equal(t, placeholderMetadata, meta)
}

func TestMetadataResolverFetchesAndCaches(t *testing.T) {
	chain := newFakeChain()
	resolver := newMetadataResolver(chain, testMetaplex, zap.NewNop())

	mint := solana.NewWallet().PublicKey()
	addr, err := DeriveMetadataAddress(testMetaplex, mint)
	require.NoError(t, err)
	chain.accounts[addr] = &blockchain.AccountInfo{
		Owner: testMetaplex,
		Data:  encodeMetadataAccount("Cached\x00", "CCH", "uri"),
	}

	meta := resolver.Resolve(context.Background(), mint)
	assert.Equal(t, "Cached", meta.Name)

	// A second resolve is served from the cache even after the account
	// disappears.
	delete(chain.accounts, addr)
	meta = resolver.Resolve(context.Background(), mint)
	assert.Equal(t, "Cached", meta.Name)
}

func TestMetadataResolverMalformedAccount(t *testing.T) {
	chain := newFakeChain()
	resolver := newMetadataResolver(chain, testMetaplex, zap.NewNop())

	mint := solana.NewWallet().PublicKey()
	addr, err := DeriveMetadataAddress(testMetaplex, mint)
	require.NoError(t, err)
	chain.accounts[addr] = &blockchain.AccountInfo{Owner: testMetaplex, Data: []byte{1, 2}}

	meta := resolver.Resolve(context.Background(), mint)
	assert.Equal(t, placeholderMetadata, meta)
}
