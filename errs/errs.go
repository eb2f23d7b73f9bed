// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package errs groups the sentinel errors raised by the RMM engine by
// taxonomy so callers can classify a failure with errors.Is without
// depending on a specific wrapped message.
package errs

import "fmt"

// Invalid input.
var (
	ErrZeroPrice          = fmt.Errorf("zero price")
	ErrZeroLiquidity      = fmt.Errorf("zero liquidity")
	ErrZeroAmounts        = fmt.Errorf("zero amounts")
	ErrZeroInput          = fmt.Errorf("zero input")
	ErrZeroOutput         = fmt.Errorf("zero output")
	ErrInvalidDecimals    = fmt.Errorf("invalid decimals")
	ErrInvalidFee         = fmt.Errorf("invalid fee")
	ErrInvalidVolatility  = fmt.Errorf("invalid volatility")
	ErrInvalidDuration    = fmt.Errorf("invalid duration")
	ErrInvalidJit         = fmt.Errorf("invalid jit")
	ErrSameToken          = fmt.Errorf("same token")
	ErrInvalidTransfer    = fmt.Errorf("invalid transfer")
	ErrInvalidInstruction = fmt.Errorf("invalid instruction")
)

// State conflict.
var (
	ErrPairExists         = fmt.Errorf("pair exists")
	ErrPoolExists         = fmt.Errorf("pool exists")
	ErrNonExistentPair    = fmt.Errorf("non-existent pair")
	ErrNonExistentPool    = fmt.Errorf("non-existent pool")
	ErrNonExistentPosition = fmt.Errorf("non-existent position")
	ErrNotController      = fmt.Errorf("not controller")
)

// Policy.
var (
	ErrPoolExpired = fmt.Errorf("pool expired")
	ErrDrawBalance = fmt.Errorf("draw exceeds balance")
)

// Invariant.
var (
	ErrInvalidSettlement = fmt.Errorf("invalid settlement")
	ErrInvalidReentrancy = fmt.Errorf("invalid reentrancy")
)

// Math.
var (
	ErrDivisionByZero = fmt.Errorf("division by zero")
	ErrOverflowWad    = fmt.Errorf("overflow wad")
	ErrUndefinedPrice = fmt.Errorf("undefined price")
)

// JitLiquidity is raised when a deallocation arrives before the pool's
// anti-siphon window has elapsed.
type JitLiquidity struct {
	Required uint64
}

func (e *JitLiquidity) Error() string {
	return fmt.Sprintf("jit liquidity: required %d seconds elapsed", e.Required)
}

// InvalidInvariant is raised when a swap would decrease the pool's
// invariant.
type InvalidInvariant struct {
	Prev, Next string
}

func (e *InvalidInvariant) Error() string {
	return fmt.Sprintf("invalid invariant: prev=%s next=%s", e.Prev, e.Next)
}

// CastOverflow is raised when a safe width cast would lose precision.
type CastOverflow struct {
	Value string
}

func (e *CastOverflow) Error() string {
	return fmt.Sprintf("cast overflow: value=%s", e.Value)
}
