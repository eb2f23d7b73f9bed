// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wad implements 18-decimal fixed-point arithmetic with directed
// rounding, matching the precision conventions used throughout the RMM
// engine: every reserve, price, liquidity and fee amount is carried as an
// 18-decimal *big.Int rather than a native float.
package wad

import (
	"math/big"

	"github.com/luxfi/rmm/errs"
)

// One is 1.0 in WAD fixed point (10^18).
var One = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

const Decimals = 18

// MulWadDown computes floor(a*b / WAD).
func MulWadDown(a, b *big.Int) *big.Int {
	prod := new(big.Int).Mul(a, b)
	return floorDiv(prod, One)
}

// MulWadUp computes ceil(a*b / WAD).
func MulWadUp(a, b *big.Int) *big.Int {
	prod := new(big.Int).Mul(a, b)
	return ceilDiv(prod, One)
}

// DivWadDown computes floor(a*WAD / b).
func DivWadDown(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, errs.ErrDivisionByZero
	}
	num := new(big.Int).Mul(a, One)
	return floorDiv(num, b), nil
}

// DivWadUp computes ceil(a*WAD / b).
func DivWadUp(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, errs.ErrDivisionByZero
	}
	num := new(big.Int).Mul(a, One)
	return ceilDiv(num, b), nil
}

// ScaleToWad scales a token-native amount with dec fractional digits up to
// WAD (18 digits). dec must be <= 18; the engine validates token decimal
// widths at pair-creation time so this never needs to round.
func ScaleToWad(x *big.Int, dec uint8) *big.Int {
	if dec >= Decimals {
		return new(big.Int).Set(x)
	}
	factor := pow10(Decimals - uint(dec))
	return new(big.Int).Mul(x, factor)
}

// ScaleFromWadDown scales a WAD amount back down to dec fractional digits,
// rounding down (floor, so negative values round away from zero).
func ScaleFromWadDown(x *big.Int, dec uint8) *big.Int {
	if dec >= Decimals {
		return new(big.Int).Set(x)
	}
	factor := pow10(Decimals - uint(dec))
	return floorDiv(x, factor)
}

func pow10(n uint) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(uint64(n)), nil)
}

// floorDiv computes floor(num/den) for arbitrary signs.
func floorDiv(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 && (r.Sign() < 0) != (den.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return q
}

// ceilDiv computes ceil(num/den) for arbitrary signs.
func ceilDiv(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() == 0 {
		return q
	}
	if (r.Sign() > 0) == (den.Sign() > 0) {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// SafeUint64 casts a WAD-scale big.Int into a uint64, failing with
// CastOverflow if the value cannot be represented exactly.
func SafeUint64(x *big.Int) (uint64, error) {
	if x.Sign() < 0 || !x.IsUint64() {
		return 0, &errs.CastOverflow{Value: x.String()}
	}
	return x.Uint64(), nil
}
