// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swap

import (
	"math/big"
	"testing"

	"github.com/luxfi/rmm/adapter"
	"github.com/luxfi/rmm/pool"
)

func addr(b byte) adapter.Address {
	var a adapter.Address
	a[19] = b
	return a
}

func bigInt(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad bigint literal: " + s)
	}
	return n
}

func setupPoolWithLiquidity(t *testing.T) (*pool.Store, uint64) {
	t.Helper()
	s := pool.NewStore()
	asset, quote := addr(1), addr(2)
	pairID, err := s.CreatePair(asset, quote, 18, 18)
	if err != nil {
		t.Fatalf("CreatePair: %v", err)
	}
	p, err := s.CreatePool(pool.CreatePoolParams{
		PairRef:         pairID,
		FeeBps:          30,
		VolatilityBps:   10_000,
		DurationSeconds: 31_536_000,
		JitSeconds:      4,
		MaxPrice:        bigInt("3000000000000000000000"),
		Price:           bigInt("2000000000000000000000"),
		Now:             1_000,
	})
	if err != nil {
		t.Fatalf("CreatePool: %v", err)
	}

	owner := addr(9)
	oneWad := bigInt("1000000000000000000")
	if _, err := s.Allocate(owner, p.ID, false, oneWad, nil, nil, 1_000); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	return s, p.ID
}

// TestSwapScenarioS3 reproduces the literal swap fee-growth scenario: a
// swap selling the asset increases fee_growth_asset_global only, moves
// reserves in the expected direction, and never decreases the invariant.
func TestSwapScenarioS3(t *testing.T) {
	s, poolID := setupPoolWithLiquidity(t)
	obj := CoveredCall{}

	before, err := s.Pool(poolID)
	if err != nil {
		t.Fatal(err)
	}
	prevX, prevY := new(big.Int).Set(before.VirtualX), new(big.Int).Set(before.VirtualY)
	prevInv, err := obj.Invariant(prevY, prevX, pool.CurveParamsAt(before, 1_000))
	if err != nil {
		t.Fatalf("Invariant: %v", err)
	}

	res, err := Execute(s, obj, Input{
		PoolID:      poolID,
		SellAsset:   true,
		InputAmount: bigInt("100000000000000000"), // 0.1
		MinOutput:   big.NewInt(0),
	}, 1_000)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	after, _ := s.Pool(poolID)
	if after.FeeGrowthAssetGlobal.Sign() == 0 {
		t.Fatal("expected fee_growth_asset_global to increase")
	}
	if after.FeeGrowthQuoteGlobal.Sign() != 0 {
		t.Fatal("expected fee_growth_quote_global to remain unchanged")
	}
	if after.VirtualX.Cmp(prevX) <= 0 {
		t.Fatalf("expected virtual_x (asset reserve) to increase, got %s want >%s", after.VirtualX, prevX)
	}
	if after.VirtualY.Cmp(prevY) >= 0 {
		t.Fatalf("expected virtual_y (quote reserve) to decrease, got %s want <%s", after.VirtualY, prevY)
	}

	nextInv, err := obj.Invariant(after.VirtualY, after.VirtualX, pool.CurveParamsAt(after, 1_000))
	if err != nil {
		t.Fatalf("Invariant: %v", err)
	}
	if nextInv.Cmp(prevInv) < 0 {
		t.Fatalf("invariant decreased: prev=%s next=%s", prevInv, nextInv)
	}

	if res.OutputNative.Sign() <= 0 {
		t.Fatal("expected a positive output amount")
	}
}

func TestSwapFailsOnExpiredPool(t *testing.T) {
	s, poolID := setupPoolWithLiquidity(t)
	obj := CoveredCall{}

	_, err := Execute(s, obj, Input{
		PoolID:      poolID,
		SellAsset:   true,
		InputAmount: bigInt("100000000000000000"),
		MinOutput:   big.NewInt(0),
	}, 1_000+31_536_000+1)
	if err == nil {
		t.Fatal("expected PoolExpired error")
	}
}

func TestSwapFailsOnZeroLiquidity(t *testing.T) {
	s := pool.NewStore()
	asset, quote := addr(1), addr(2)
	pairID, err := s.CreatePair(asset, quote, 18, 18)
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.CreatePool(pool.CreatePoolParams{
		PairRef:         pairID,
		FeeBps:          30,
		VolatilityBps:   10_000,
		DurationSeconds: 31_536_000,
		JitSeconds:      4,
		MaxPrice:        bigInt("3000000000000000000000"),
		Price:           bigInt("2000000000000000000000"),
		Now:             1_000,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = Execute(s, CoveredCall{}, Input{
		PoolID:      p.ID,
		SellAsset:   true,
		InputAmount: bigInt("100000000000000000"),
		MinOutput:   big.NewInt(0),
	}, 1_000)
	if err == nil {
		t.Fatal("expected ZeroLiquidity error on a pool with no allocated liquidity")
	}
}
