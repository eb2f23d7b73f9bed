// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pool implements the pool state machine: pair and pool creation,
// parameter validation, and the liquidity mutation primitives (allocate,
// deallocate, claim, change-parameters) that evolve a pool's reserves and
// fee checkpoints.
package pool

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/luxfi/rmm/adapter"
)

// Bounds on pool parameters. Basis points, 10000 == 100%.
const (
	MinFeeBps        = 1
	MaxFeeBps        = 1_000 // 10%
	MinVolatilityBps = 1
	MaxVolatilityBps = 500_000 // 5000%
	MinDecimals      = 6
	MaxDecimals      = 18
	MaxJitSeconds    = 365 * 24 * 60 * 60

	// DefaultJitPolicy is pinned onto controller-less pools regardless of
	// the jit value supplied at creation.
	DefaultJitPolicy = 4
)

// MaxOwed is the "all owed" sentinel accepted by Claim in place of an
// explicit requested amount.
var MaxOwed = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Pair is an ordered (asset, quote) token identity with pinned decimal
// widths. The pair identifier is a dense monotonic counter starting at 1.
type Pair struct {
	ID            uint32
	Asset, Quote  adapter.Address
	AssetDecimals uint8
	QuoteDecimals uint8
}

// Params are a pool's mutable and immutable trading parameters.
type Params struct {
	MaxPrice       *big.Int // strike K
	JitSeconds     uint64
	FeeBps         uint32
	PriorityFeeBps uint32
	VolatilityBps  uint32
	DurationSeconds uint64
	CreatedAt      uint64
}

// Pool is keyed by a 64-bit identifier encoding (pair_id:24,
// has_controller:8, pool_nonce:32).
type Pool struct {
	ID         uint64
	PairID     uint32
	Controller *adapter.Address

	Params Params

	VirtualX *big.Int // WAD
	VirtualY *big.Int // WAD
	Liquidity *big.Int // WAD

	FeeGrowthAssetGlobal     *uint256.Int // wrapping
	FeeGrowthQuoteGlobal     *uint256.Int // wrapping
	InvariantGrowthGlobal    *uint256.Int // wrapping

	LastTimestamp uint64
}

// Position is keyed by (owner, pool id).
type Position struct {
	Owner  adapter.Address
	PoolID uint64

	FreeLiquidity     *big.Int
	TokensOwedAsset   *big.Int
	TokensOwedQuote   *big.Int

	FeeGrowthAssetLast    *uint256.Int
	FeeGrowthQuoteLast    *uint256.Int
	InvariantGrowthLast   *uint256.Int

	LastTimestamp uint64
}

// EncodePoolID bit-packs a pool identifier from its pair id, controller
// presence flag and per-pair nonce.
func EncodePoolID(pairID uint32, hasController bool, nonce uint32) uint64 {
	var hc uint64
	if hasController {
		hc = 1
	}
	return (uint64(pairID&0xFFFFFF) << 40) | (hc << 32) | uint64(nonce)
}

// DecodePoolID unpacks a pool identifier into its components.
func DecodePoolID(id uint64) (pairID uint32, hasController bool, nonce uint32) {
	pairID = uint32((id >> 40) & 0xFFFFFF)
	hasController = (id>>32)&1 == 1
	nonce = uint32(id & 0xFFFFFFFF)
	return
}
