package vrgda

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Anchor account discriminator for the auction state account.
var auctionAccountDiscriminator = []byte{159, 20, 71, 78, 42, 222, 122, 203}

// ScheduleKind tags the issuance schedule variant stored on chain.
type ScheduleKind uint8

const (
	// ScheduleLinear issues tokens at a constant rate r per unit time.
	ScheduleLinear ScheduleKind = 0
)

// Schedule is the issuance schedule tagged union. Only the linear variant
// exists in the program today; the tag is kept so new variants decode
// into an explicit error instead of garbage.
type Schedule struct {
	Kind ScheduleKind
	// R is the linear issuance rate, tokens per unit time.
	R uint64
}

func (s *Schedule) UnmarshalWithDecoder(dec *bin.Decoder) error {
	tag, err := dec.ReadUint8()
	if err != nil {
		return fmt.Errorf("read schedule tag: %w", err)
	}
	switch ScheduleKind(tag) {
	case ScheduleLinear:
		s.Kind = ScheduleLinear
		s.R, err = dec.ReadUint64(bin.LE)
		if err != nil {
			return fmt.Errorf("read linear schedule rate: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown schedule variant %d", tag)
	}
}

func (s Schedule) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint8(uint8(s.Kind)); err != nil {
		return err
	}
	return enc.WriteUint64(s.R, bin.LE)
}

// AuctionState mirrors the program's auction account, field for field in
// borsh order.
type AuctionState struct {
	Mint solana.PublicKey
	// TotalSupply is the supply still available for purchase. The amount
	// originally offered is TotalSupply + TokensSold.
	TotalSupply uint64
	// Authority receives payments and may close the auction.
	Authority solana.PublicKey
	// TargetPrice is the on-schedule price in squared-lamport fixed point.
	TargetPrice bin.Uint128
	// DecayConstantPercent is the per-unit-time decay, in whole percent.
	DecayConstantPercent uint64
	TokensSold           uint64
	CreatedAtTimestamp   int64
	VrgdaStartTimestamp  int64
	AuctionEnded         bool
	Schedule             Schedule
	CurrentPrice         uint64
	Bump                 uint8
}

// DecodeAuctionState decodes raw account data into an AuctionState,
// verifying the account discriminator first. account is only used for
// error reporting.
func DecodeAuctionState(account solana.PublicKey, data []byte) (*AuctionState, error) {
	if len(data) < 8 {
		return nil, &DecodeError{Account: account, Reason: fmt.Sprintf("data too short: %d bytes", len(data))}
	}
	if !bytes.Equal(data[:8], auctionAccountDiscriminator) {
		return nil, &DecodeError{Account: account, Reason: "account discriminator mismatch"}
	}

	var state AuctionState
	dec := bin.NewBorshDecoder(data[8:])
	if err := dec.Decode(&state); err != nil {
		return nil, &DecodeError{Account: account, Reason: "borsh decode failed", Err: err}
	}
	return &state, nil
}

// PricingParams converts the stored fixed-point parameters into the float
// form the pricing engine consumes.
func (s *AuctionState) PricingParams() PricingParams {
	return PricingParams{
		TargetPrice:    WadToPrice(s.TargetPrice),
		DecayConstant:  float64(s.DecayConstantPercent) / 100,
		UnitsPerPeriod: float64(s.Schedule.R),
		ReservePrice:   0,
	}
}

// RemainingSupply returns tokens still purchasable, in base units.
func (s *AuctionState) RemainingSupply() uint64 {
	return s.TotalSupply
}

// OfferedSupply returns the amount originally offered, in base units.
func (s *AuctionState) OfferedSupply() uint64 {
	return s.TotalSupply + s.TokensSold
}

// IsActive reports whether the auction is still accepting purchases.
func (s *AuctionState) IsActive() bool {
	return !s.AuctionEnded
}
