// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/luxfi/rmm/adapter"
	"github.com/luxfi/rmm/errs"
	"github.com/luxfi/rmm/wad"
)

// LiquidityDelta is the token movement implied by a change in liquidity.
type LiquidityDelta struct {
	Liquidity    *big.Int
	DeltaAsset   *big.Int
	DeltaQuote   *big.Int
}

// liquidityDeltas computes the (asset, quote) amounts corresponding to
// |deltaLiquidity| units of pool liquidity at the pool's current reserve
// ratio. Allocate rounds away from the pool (up); deallocate rounds toward
// the pool (down); this asymmetry is load-bearing and must not be unified.
func liquidityDeltas(p *Pool, deltaLiquidity *big.Int, roundUp bool) (asset, quote *big.Int) {
	abs := new(big.Int).Abs(deltaLiquidity)
	if roundUp {
		return wad.MulWadUp(p.VirtualX, abs), wad.MulWadUp(p.VirtualY, abs)
	}
	return wad.MulWadDown(p.VirtualX, abs), wad.MulWadDown(p.VirtualY, abs)
}

// maxMintable computes the largest liquidity increment fundable from the
// owner's available asset/quote balances at the pool's current ratio.
func maxMintable(p *Pool, ownerBalanceAsset, ownerBalanceQuote *big.Int) (*big.Int, error) {
	if p.VirtualX.Sign() == 0 || p.VirtualY.Sign() == 0 {
		return big.NewInt(0), nil
	}
	lFromAsset, err := wad.DivWadDown(ownerBalanceAsset, p.VirtualX)
	if err != nil {
		return nil, err
	}
	lFromQuote, err := wad.DivWadDown(ownerBalanceQuote, p.VirtualY)
	if err != nil {
		return nil, err
	}
	if lFromAsset.Cmp(lFromQuote) < 0 {
		return lFromAsset, nil
	}
	return lFromQuote, nil
}

// syncPositionFees credits the position's tokens-owed from the pool's fee
// growth checkpoints since the position was last touched, using wrapping
// subtraction: fee_growth_*_global is allowed to wrap modulo 2^256 and the
// distance between checkpoints is computed with wrapping semantics.
func syncPositionFees(pos *Position, p *Pool) {
	deltaAsset := new(uint256.Int).Sub(p.FeeGrowthAssetGlobal, pos.FeeGrowthAssetLast)
	deltaQuote := new(uint256.Int).Sub(p.FeeGrowthQuoteGlobal, pos.FeeGrowthQuoteLast)

	owedAsset := wad.MulWadDown(deltaAsset.ToBig(), pos.FreeLiquidity)
	owedQuote := wad.MulWadDown(deltaQuote.ToBig(), pos.FreeLiquidity)

	pos.TokensOwedAsset.Add(pos.TokensOwedAsset, owedAsset)
	pos.TokensOwedQuote.Add(pos.TokensOwedQuote, owedQuote)

	pos.FeeGrowthAssetLast = new(uint256.Int).Set(p.FeeGrowthAssetGlobal)
	pos.FeeGrowthQuoteLast = new(uint256.Int).Set(p.FeeGrowthQuoteGlobal)
	pos.InvariantGrowthLast = new(uint256.Int).Set(p.InvariantGrowthGlobal)
}

// Allocate adds deltaLiquidity units of liquidity to owner's position in
// poolID, returning the asset/quote amounts the caller must fund.
func (s *Store) Allocate(owner adapter.Address, poolID uint64, useMax bool, deltaLiquidity, ownerBalanceAsset, ownerBalanceQuote *big.Int, now uint64) (*LiquidityDelta, error) {
	p, err := s.Pool(poolID)
	if err != nil {
		return nil, err
	}
	pos := s.getOrCreatePosition(owner, poolID)

	amount := deltaLiquidity
	if useMax {
		amount, err = maxMintable(p, ownerBalanceAsset, ownerBalanceQuote)
		if err != nil {
			return nil, err
		}
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errs.ErrZeroLiquidity
	}

	dAsset, dQuote := liquidityDeltas(p, amount, true)

	syncPositionFees(pos, p)

	pos.FreeLiquidity = new(big.Int).Add(pos.FreeLiquidity, amount)
	pos.LastTimestamp = now
	p.Liquidity = new(big.Int).Add(p.Liquidity, amount)

	return &LiquidityDelta{Liquidity: amount, DeltaAsset: dAsset, DeltaQuote: dQuote}, nil
}

// Deallocate removes deltaLiquidity units of liquidity from owner's
// position in poolID, returning the asset/quote amounts owed back.
func (s *Store) Deallocate(owner adapter.Address, poolID uint64, useMax bool, deltaLiquidity *big.Int, now uint64) (*LiquidityDelta, error) {
	p, err := s.Pool(poolID)
	if err != nil {
		return nil, err
	}
	pos, ok := s.Position(owner, poolID)
	if !ok {
		return nil, errs.ErrNonExistentPosition
	}

	if now-pos.LastTimestamp < p.Params.JitSeconds {
		return nil, &errs.JitLiquidity{Required: p.Params.JitSeconds}
	}

	amount := deltaLiquidity
	if useMax {
		amount = new(big.Int).Set(pos.FreeLiquidity)
	}
	if amount == nil || amount.Sign() <= 0 || amount.Cmp(pos.FreeLiquidity) > 0 {
		return nil, errs.ErrZeroAmounts
	}

	dAsset, dQuote := liquidityDeltas(p, amount, false)

	syncPositionFees(pos, p)

	pos.FreeLiquidity = new(big.Int).Sub(pos.FreeLiquidity, amount)
	pos.LastTimestamp = now
	p.Liquidity = new(big.Int).Sub(p.Liquidity, amount)

	return &LiquidityDelta{Liquidity: amount, DeltaAsset: dAsset, DeltaQuote: dQuote}, nil
}

// Claim transfers min(requested, owed) out of a position's tokens-owed
// accounts. MaxOwed means "claim everything owed".
func (s *Store) Claim(owner adapter.Address, poolID uint64, deltaAssetReq, deltaQuoteReq *big.Int) (asset, quote *big.Int, err error) {
	p, err := s.Pool(poolID)
	if err != nil {
		return nil, nil, err
	}
	pos, ok := s.Position(owner, poolID)
	if !ok {
		return nil, nil, errs.ErrNonExistentPosition
	}
	syncPositionFees(pos, p)

	claimedAsset := minClaim(deltaAssetReq, pos.TokensOwedAsset)
	claimedQuote := minClaim(deltaQuoteReq, pos.TokensOwedQuote)

	pos.TokensOwedAsset = new(big.Int).Sub(pos.TokensOwedAsset, claimedAsset)
	pos.TokensOwedQuote = new(big.Int).Sub(pos.TokensOwedQuote, claimedQuote)

	return claimedAsset, claimedQuote, nil
}

func minClaim(requested, owed *big.Int) *big.Int {
	if requested.Cmp(MaxOwed) >= 0 || requested.Cmp(owed) > 0 {
		return new(big.Int).Set(owed)
	}
	return new(big.Int).Set(requested)
}
