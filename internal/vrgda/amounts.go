package vrgda

import (
	"math"
	"math/big"

	bin "github.com/gagliardetto/binary"
)

// Unit constants. Prices are quoted in SOL, settled in squared-lamport
// fixed point (1e18 per SOL); token amounts use 6 decimals.
const (
	TokenDecimals      = 6
	TokenBaseUnits     = 1_000_000
	LamportsPerSol     = 1_000_000_000
	priceWadPerLamport = 1_000_000_000
)

// TokensToBaseUnits converts a whole-token amount to mint base units.
func TokensToBaseUnits(tokens uint64) uint64 {
	return tokens * TokenBaseUnits
}

// BaseUnitsToTokens converts mint base units to a whole-token amount.
func BaseUnitsToTokens(baseUnits uint64) float64 {
	return float64(baseUnits) / TokenBaseUnits
}

// SolToLamports converts a SOL amount to lamports, truncating sub-lamport
// precision.
func SolToLamports(sol float64) uint64 {
	return uint64(math.Floor(sol * LamportsPerSol))
}

// LamportsToSol converts lamports to SOL.
func LamportsToSol(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSol
}

// PriceToWad converts a SOL-denominated price to the program's u128
// fixed-point representation: lamports scaled by a further 1e9. The two
// scaling steps are kept separate so the float truncation happens at
// lamport precision, matching the original client.
func PriceToWad(priceSol float64) bin.Uint128 {
	lamports := new(big.Int).SetUint64(uint64(math.Floor(priceSol * LamportsPerSol)))
	wad := new(big.Int).Mul(lamports, big.NewInt(priceWadPerLamport))
	return uint128FromBig(wad)
}

// WadToPrice converts the program's u128 fixed-point price back to SOL.
// The conversion is lossy above 2^53 lamports-squared but fine for display.
func WadToPrice(wad bin.Uint128) float64 {
	f := new(big.Float).SetInt(wad.BigInt())
	f.Quo(f, big.NewFloat(1e18))
	out, _ := f.Float64()
	return out
}

func uint128FromBig(v *big.Int) bin.Uint128 {
	var buf [16]byte
	v.FillBytes(buf[:])
	var out bin.Uint128
	out.Hi = beUint64(buf[0:8])
	out.Lo = beUint64(buf[8:16])
	return out
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
