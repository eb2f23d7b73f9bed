// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swap

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/luxfi/rmm/errs"
	"github.com/luxfi/rmm/pool"
	"github.com/luxfi/rmm/wad"
)

// Input describes a requested swap in token-native units.
type Input struct {
	UseMax              bool
	PoolID              uint64
	SellAsset           bool
	InputAmount         *big.Int // native units; ignored if UseMax
	MinOutput           *big.Int // native units
	CallerIsController  bool
	OwnerInputBalance   *big.Int // native units; only consulted if UseMax
}

// Result is the settled outcome of one swap iteration, in token-native
// units, ready for the ledger to apply.
type Result struct {
	InputNative  *big.Int // full amount pulled from the caller, fee included
	OutputNative *big.Int
	FeeAmountWad *big.Int
}

const bpsDenominator = 10_000

// Execute runs the nine-step swap algorithm against store's pool state
// using obj as the trading function, mutating the pool's reserves, fee
// growth and invariant growth checkpoints in place. It never touches the
// ledger; the caller (the operation dispatcher) applies Result to the
// accounting layer.
func Execute(store *pool.Store, obj Objective, in Input, now uint64) (*Result, error) {
	p, err := store.Pool(in.PoolID)
	if err != nil {
		return nil, err
	}
	pair, err := store.Pair(p.PairID)
	if err != nil {
		return nil, err
	}

	params := pool.CurveParamsAt(p, now)
	if obj.Expired(params) {
		return nil, errs.ErrPoolExpired
	}
	p.LastTimestamp = now

	prevInvariant, err := obj.Invariant(p.VirtualY, p.VirtualX, params)
	if err != nil {
		return nil, err
	}

	if p.Liquidity.Sign() == 0 {
		return nil, errs.ErrZeroLiquidity
	}

	inputDecimals, outputDecimals := pair.QuoteDecimals, pair.AssetDecimals
	if in.SellAsset {
		inputDecimals, outputDecimals = pair.AssetDecimals, pair.QuoteDecimals
	}

	remainderNative := in.InputAmount
	if in.UseMax {
		remainderNative = in.OwnerInputBalance
	}
	if remainderNative == nil || remainderNative.Sign() <= 0 {
		return nil, errs.ErrZeroInput
	}
	remainder := wad.ScaleToWad(remainderNative, inputDecimals)

	minOutputNative := in.MinOutput
	if minOutputNative == nil {
		minOutputNative = big.NewInt(0)
	}
	minOutput := wad.ScaleToWad(minOutputNative, outputDecimals)

	liveIndependent, liveDependent := p.VirtualX, p.VirtualY
	if !in.SellAsset {
		liveIndependent, liveDependent = p.VirtualY, p.VirtualX
	}

	feeBps := p.Params.FeeBps
	if in.CallerIsController {
		feeBps = p.Params.PriorityFeeBps
	}

	maxInput, err := obj.ComputeMaxInput(params, in.SellAsset, liveIndependent, p.Liquidity)
	if err != nil {
		return nil, err
	}
	consumed := remainder
	if maxInput.Cmp(consumed) < 0 {
		consumed = maxInput
	}
	if consumed.Sign() <= 0 {
		return nil, errs.ErrZeroInput
	}

	feeAmount := new(big.Int).Mul(consumed, big.NewInt(int64(feeBps)))
	feeAmount.Quo(feeAmount, big.NewInt(bpsDenominator))
	consumedLessFee := new(big.Int).Sub(consumed, feeAmount)

	deltaGross, err := wad.DivWadDown(consumed, p.Liquidity)
	if err != nil {
		return nil, err
	}
	deltaNet, err := wad.DivWadDown(consumedLessFee, p.Liquidity)
	if err != nil {
		return nil, err
	}
	nextIndependent := new(big.Int).Add(liveIndependent, deltaGross)
	netIndependent := new(big.Int).Add(liveIndependent, deltaNet)

	// The curve is solved against the fee-discounted move (netIndependent),
	// holding the pool's prevInvariant fixed; the independent reserve is
	// then updated by the full, fee-inclusive move. The fee stays behind
	// in the reserve instead of being paid out, which is what lets
	// nextInvariant below land strictly above prevInvariant.
	nextDependent, err := obj.NextDependent(netIndependent, params, in.SellAsset, prevInvariant)
	if err != nil {
		return nil, err
	}

	outputAmount := new(big.Int).Sub(liveDependent, nextDependent)
	if outputAmount.Sign() < 0 {
		return nil, errs.ErrZeroOutput
	}
	if outputAmount.Cmp(minOutput) < 0 {
		return nil, errs.ErrZeroOutput
	}

	nextX, nextY := nextIndependent, nextDependent
	if !in.SellAsset {
		nextX, nextY = nextDependent, nextIndependent
	}
	nextInvariant, err := obj.Invariant(nextY, nextX, params)
	if err != nil {
		return nil, err
	}
	if nextInvariant.Cmp(prevInvariant) < 0 {
		return nil, &errs.InvalidInvariant{Prev: prevInvariant.String(), Next: nextInvariant.String()}
	}

	if nextInvariant.Sign() > 0 {
		deltaFeeGrowth, err := wad.DivWadDown(feeAmount, p.Liquidity)
		if err == nil && deltaFeeGrowth.Sign() > 0 {
			growthU256, overflow := uint256.FromBig(deltaFeeGrowth)
			if !overflow {
				if in.SellAsset {
					p.FeeGrowthAssetGlobal.Add(p.FeeGrowthAssetGlobal, growthU256)
				} else {
					p.FeeGrowthQuoteGlobal.Add(p.FeeGrowthQuoteGlobal, growthU256)
				}
			}
		}
	}

	obj.AfterSwap(p, prevInvariant, nextInvariant)
	p.VirtualX, p.VirtualY = nextX, nextY

	return &Result{
		InputNative:  wad.ScaleFromWadDown(consumed, inputDecimals),
		OutputNative: wad.ScaleFromWadDown(outputAmount, outputDecimals),
		FeeAmountWad: feeAmount,
	}, nil
}
