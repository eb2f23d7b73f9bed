// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package swap implements the per-swap iteration: pre-effects, input
// normalisation, fee application, reserve update, the invariant-
// non-decreasing check, fee-growth accumulation and post-effects.
//
// The trading-function specifics are isolated behind the Objective
// interface (the source's Portfolio abstract contract) so a different RMM
// flavour could be plugged in at pool-engine construction without touching
// the swap iteration itself.
package swap

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/luxfi/rmm/curve"
	"github.com/luxfi/rmm/pool"
	"github.com/luxfi/rmm/wad"
)

// Objective is the capability set a trading function must provide to the
// swap engine. All methods receive the curve parameters already resolved
// for "now" (tau decayed toward the pool's expiry), computed once per swap
// by the caller so every step of one iteration agrees on the same tau.
type Objective interface {
	// Expired reports whether tau has collapsed to zero.
	Expired(params curve.Params) bool

	// ComputeMaxInput bounds how much of the independent reserve a single
	// swap may add, derived from the curve's saturation bound rather than
	// a fixed constant.
	ComputeMaxInput(params curve.Params, sellAsset bool, liveIndependent, liquidity *big.Int) (*big.Int, error)

	// NextDependent derives the dependent reserve implied by a new
	// independent reserve value, holding the invariant at inv (the pool's
	// prevInvariant for this swap, not a fixed baseline).
	NextDependent(nextIndependent *big.Int, params curve.Params, sellAsset bool, inv *big.Int) (*big.Int, error)

	// Invariant evaluates the scalar invariant for a given (y, x) pair.
	Invariant(y, x *big.Int, params curve.Params) (*big.Int, error)

	// AfterSwap commits the new invariant growth checkpoint.
	AfterSwap(p *pool.Pool, prevInvariant, nextInvariant *big.Int)
}

// CoveredCall is the concrete RMM trading function: a replicated covered
// call, parametrised per-pool by strike, volatility and time-to-maturity.
type CoveredCall struct{}

var _ Objective = CoveredCall{}

func (CoveredCall) Expired(params curve.Params) bool {
	return params.Tau.Sign() == 0
}

// ComputeMaxInput bounds the independent reserve's growth by the curve's
// domain: x must remain strictly below 1 WAD (selling the risky asset),
// while selling the quote asset is bounded by the strike K (the limit of
// y_of_x as x -> 0).
func (CoveredCall) ComputeMaxInput(params curve.Params, sellAsset bool, liveIndependent, liquidity *big.Int) (*big.Int, error) {
	cap := params.Strike
	if sellAsset {
		cap = wad.One
	}
	headroom := new(big.Int).Sub(cap, liveIndependent)
	if headroom.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	return wad.MulWadDown(headroom, liquidity), nil
}

func (CoveredCall) NextDependent(nextIndependent *big.Int, params curve.Params, sellAsset bool, inv *big.Int) (*big.Int, error) {
	if sellAsset {
		return curve.YOfX(nextIndependent, params, inv)
	}
	return curve.XOfY(nextIndependent, params, inv)
}

func (CoveredCall) Invariant(y, x *big.Int, params curve.Params) (*big.Int, error) {
	return curve.Invariant(y, x, params)
}

func (CoveredCall) AfterSwap(p *pool.Pool, prevInvariant, nextInvariant *big.Int) {
	growth := new(big.Int).Sub(nextInvariant, prevInvariant)
	if growth.Sign() < 0 {
		growth = big.NewInt(0)
	}
	growthU256, overflow := uint256.FromBig(growth)
	if overflow {
		return
	}
	p.InvariantGrowthGlobal.Add(p.InvariantGrowthGlobal, growthU256)
}
