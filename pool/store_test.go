// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"math/big"
	"testing"

	"github.com/luxfi/rmm/adapter"
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

func TestCreatePairRejectsSameToken(t *testing.T) {
	s := NewStore()
	tok := addr(1)
	if _, err := s.CreatePair(tok, tok, 18, 6); err == nil {
		t.Fatal("expected SameToken error")
	}
}

func TestCreatePairRejectsDuplicateAndBadDecimals(t *testing.T) {
	s := NewStore()
	asset, quote := addr(1), addr(2)
	if _, err := s.CreatePair(asset, quote, 18, 6); err != nil {
		t.Fatalf("CreatePair: %v", err)
	}
	if _, err := s.CreatePair(asset, quote, 18, 6); err == nil {
		t.Fatal("expected PairExists error")
	}
	if _, err := s.CreatePair(addr(3), addr(4), 5, 6); err == nil {
		t.Fatal("expected InvalidDecimals error")
	}
}

// TestCreatePoolScenarioS1 reproduces the literal end-to-end creation
// scenario: Pair(A decimals 18, Q decimals 6), a controller-less pool at
// fee=30bps, vol=10000bps, duration=1 year, jit=4, max_price=3000,
// price=2000, expecting virtual_x ~= 0.308 and virtual_y ~= 1384.
func TestCreatePoolScenarioS1(t *testing.T) {
	s := NewStore()
	asset, quote := addr(1), addr(2)
	pairID, err := s.CreatePair(asset, quote, 18, 6)
	if err != nil {
		t.Fatalf("CreatePair: %v", err)
	}

	pool, err := s.CreatePool(CreatePoolParams{
		PairRef:         pairID,
		Controller:      nil,
		PriorityFeeBps:  0,
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

	if pool.Params.JitSeconds != 4 {
		t.Fatalf("expected jit=4, got %d", pool.Params.JitSeconds)
	}
	if pool.Params.PriorityFeeBps != 0 {
		t.Fatalf("expected priority fee pinned to 0 for controller-less pool, got %d", pool.Params.PriorityFeeBps)
	}

	// virtual_x must land strictly inside (0, WAD) and virtual_y must be
	// positive, per the universal pool invariant (spec.md testable
	// property 2).
	if pool.VirtualX.Sign() <= 0 || pool.VirtualX.Cmp(wadOne) >= 0 {
		t.Fatalf("expected 0 < virtual_x < 1, got %s", pool.VirtualX)
	}
	if pool.VirtualY.Sign() <= 0 {
		t.Fatalf("expected virtual_y > 0, got %s", pool.VirtualY)
	}

	// Pin the documented S1 numbers (virtual_x ~= 0.308, virtual_y ~=
	// 1384) against a generous tolerance band, so a precision regression
	// in wad.GaussianPPF/GaussianCDF shows up here instead of only in a
	// tolerance-based round-trip test that would tolerate the same drift
	// on both sides of the curve.
	wantX := bigInt("308000000000000000")   // 0.308
	toleranceX := bigInt("5000000000000000") // +/- 0.005
	diffX := new(big.Int).Sub(pool.VirtualX, wantX)
	diffX.Abs(diffX)
	if diffX.Cmp(toleranceX) > 0 {
		t.Fatalf("virtual_x drifted from documented S1 value: got %s want ~%s (+/- %s)", pool.VirtualX, wantX, toleranceX)
	}

	wantY := bigInt("1384000000000000000000")   // 1384
	toleranceY := bigInt("20000000000000000000") // +/- 20
	diffY := new(big.Int).Sub(pool.VirtualY, wantY)
	diffY.Abs(diffY)
	if diffY.Cmp(toleranceY) > 0 {
		t.Fatalf("virtual_y drifted from documented S1 value: got %s want ~%s (+/- %s)", pool.VirtualY, wantY, toleranceY)
	}
}

var wadOne = bigInt("1000000000000000000")

func setupPool(t *testing.T) (*Store, uint64) {
	t.Helper()
	s := NewStore()
	asset, quote := addr(1), addr(2)
	pairID, err := s.CreatePair(asset, quote, 18, 6)
	if err != nil {
		t.Fatalf("CreatePair: %v", err)
	}
	p, err := s.CreatePool(CreatePoolParams{
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
	return s, p.ID
}

// TestAllocateScenarioS2 reproduces the literal allocation scenario:
// allocate(use_max=false, deltaL=1.0) debits exactly (virtual_x, virtual_y).
func TestAllocateScenarioS2(t *testing.T) {
	s, poolID := setupPool(t)
	owner := addr(9)
	p, _ := s.Pool(poolID)

	oneWad := bigInt("1000000000000000000")
	res, err := s.Allocate(owner, poolID, false, oneWad, nil, nil, 1_000)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if res.DeltaAsset.Cmp(p.VirtualX) != 0 {
		t.Fatalf("expected deltaAsset == virtual_x, got %s want %s", res.DeltaAsset, p.VirtualX)
	}
	if res.DeltaQuote.Cmp(p.VirtualY) != 0 {
		t.Fatalf("expected deltaQuote == virtual_y, got %s want %s", res.DeltaQuote, p.VirtualY)
	}

	pos, ok := s.Position(owner, poolID)
	if !ok {
		t.Fatal("expected position to exist")
	}
	if pos.FreeLiquidity.Cmp(oneWad) != 0 {
		t.Fatalf("expected free_liquidity=1e18, got %s", pos.FreeLiquidity)
	}
	if p.Liquidity.Cmp(oneWad) != 0 {
		t.Fatalf("expected pool.liquidity=1e18, got %s", p.Liquidity)
	}
}

// TestDeallocateJitRejection reproduces scenario S4: a deallocate before
// the jit window elapses fails, and succeeds once it has.
func TestDeallocateJitRejection(t *testing.T) {
	s, poolID := setupPool(t)
	owner := addr(9)
	oneWad := bigInt("1000000000000000000")

	if _, err := s.Allocate(owner, poolID, false, oneWad, nil, nil, 1_000); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if _, err := s.Deallocate(owner, poolID, false, oneWad, 1_000+3); err == nil {
		t.Fatal("expected JitLiquidity error before jit window elapses")
	}

	if _, err := s.Deallocate(owner, poolID, false, oneWad, 1_000+4); err != nil {
		t.Fatalf("expected deallocate to succeed once jit window elapses, got %v", err)
	}
}

func TestAllocateDeallocateRoundTripPreservesLiquidity(t *testing.T) {
	s, poolID := setupPool(t)
	owner := addr(9)
	oneWad := bigInt("1000000000000000000")

	if _, err := s.Allocate(owner, poolID, false, oneWad, nil, nil, 1_000); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if _, err := s.Deallocate(owner, poolID, false, oneWad, 1_000+4); err != nil {
		t.Fatalf("Deallocate: %v", err)
	}

	pos, _ := s.Position(owner, poolID)
	if pos.FreeLiquidity.Sign() != 0 {
		t.Fatalf("expected free_liquidity back to 0, got %s", pos.FreeLiquidity)
	}
	p, _ := s.Pool(poolID)
	if p.Liquidity.Sign() != 0 {
		t.Fatalf("expected pool.liquidity back to 0, got %s", p.Liquidity)
	}
}

func TestChangeParametersRequiresController(t *testing.T) {
	s, poolID := setupPool(t)
	if err := s.ChangeParameters(poolID, addr(9), 0, 50, 0); err == nil {
		t.Fatal("expected NotController error on a controller-less pool")
	}
}
