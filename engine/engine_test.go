// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"

	"github.com/luxfi/rmm/adapter"
	"github.com/luxfi/rmm/ledger"
	"github.com/luxfi/rmm/pool"
	"github.com/luxfi/rmm/swap"
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

func newTestEngine(t *testing.T, owner adapter.Address) (*Engine, adapter.Address, adapter.Address) {
	t.Helper()
	self := addr(0xEE)
	asset, quote := addr(1), addr(2)

	assetToken := adapter.NewMemoryToken(18, map[adapter.Address]*uint256.Int{
		owner: uint256.NewInt(1_000_000_000_000_000_000),
	})
	quoteToken := adapter.NewMemoryToken(6, map[adapter.Address]*uint256.Int{
		owner: uint256.NewInt(10_000_000_000),
	})

	l := ledger.New(self)
	l.RegisterToken(asset, assetToken)
	l.RegisterToken(quote, quoteToken)

	store := pool.NewStore()
	clock := adapter.NewFixedClock(1_000)

	e := New(store, l, swap.CoveredCall{}, clock, adapter.Address{})
	return e, asset, quote
}

func TestEngineCreatePairAndPoolLifecycle(t *testing.T) {
	owner := addr(9)
	e, asset, quote := newTestEngine(t, owner)

	pairID, err := e.CreatePair(owner, asset, quote, 18, 6)
	if err != nil {
		t.Fatalf("CreatePair: %v", err)
	}

	p, err := e.CreatePool(owner, pool.CreatePoolParams{
		PairRef:         pairID,
		FeeBps:          30,
		VolatilityBps:   10_000,
		DurationSeconds: 31_536_000,
		JitSeconds:      4,
		MaxPrice:        bigInt("3000000000000000000000"),
		Price:           bigInt("2000000000000000000000"),
	})
	if err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	if !e.Ledger.Settled() {
		t.Fatal("expected ledger settled after CreatePool")
	}

	oneWad := bigInt("1000000000000000000")
	if err := e.Allocate(owner, p.ID, false, oneWad); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	pos, ok := e.Store.Position(owner, p.ID)
	if !ok || pos.FreeLiquidity.Cmp(oneWad) != 0 {
		t.Fatalf("expected free_liquidity=1e18, got %+v ok=%v", pos, ok)
	}

	res, err := e.Swap(owner, SwapInput{
		PoolID:      p.ID,
		SellAsset:   true,
		InputAmount: bigInt("100000000000000000"),
		MinOutput:   big.NewInt(0),
	})
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if res.OutputNative.Sign() <= 0 {
		t.Fatal("expected positive swap output")
	}

	outputBal := e.Ledger.BalanceOf(owner, quote)
	if outputBal.IsZero() {
		t.Fatal("expected swap output credited to owner's persistent balance")
	}
}

func TestEngineRejectsNestedDispatch(t *testing.T) {
	owner := addr(9)
	e, _, _ := newTestEngine(t, owner)
	e.locked = true

	_, err := e.CreatePair(owner, addr(1), addr(2), 18, 6)
	if err == nil {
		t.Fatal("expected ErrInvalidReentrancy while locked")
	}
}

func TestEngineRollsBackOnFailure(t *testing.T) {
	owner := addr(9)
	e, asset, quote := newTestEngine(t, owner)

	pairID, err := e.CreatePair(owner, asset, quote, 18, 6)
	if err != nil {
		t.Fatalf("CreatePair: %v", err)
	}

	// Duplicate CreatePair fails inside the same store; rollback must
	// restore exactly one pair, not leave a corrupted partial write.
	if _, err := e.CreatePair(owner, asset, quote, 18, 6); err == nil {
		t.Fatal("expected PairExists error")
	}
	if _, err := e.Store.Pair(pairID); err != nil {
		t.Fatalf("expected original pair to survive rollback: %v", err)
	}
	if _, err := e.Store.CreatePair(addr(3), addr(4), 18, 6); err != nil {
		t.Fatalf("expected a fresh pair id still mintable after rollback: %v", err)
	}
}

func TestMultiprocessSingleAllocateFrame(t *testing.T) {
	owner := addr(9)
	e, asset, quote := newTestEngine(t, owner)

	pairID, err := e.CreatePair(owner, asset, quote, 18, 6)
	if err != nil {
		t.Fatalf("CreatePair: %v", err)
	}
	p, err := e.CreatePool(owner, pool.CreatePoolParams{
		PairRef:         pairID,
		FeeBps:          30,
		VolatilityBps:   10_000,
		DurationSeconds: 31_536_000,
		JitSeconds:      4,
		MaxPrice:        bigInt("3000000000000000000000"),
		Price:           bigInt("2000000000000000000000"),
	})
	if err != nil {
		t.Fatalf("CreatePool: %v", err)
	}

	oneWad := bigInt("1000000000000000000")
	payload := encodeAllocateFrame(p.ID, oneWad, false)

	if err := e.Multiprocess(owner, payload); err != nil {
		t.Fatalf("Multiprocess: %v", err)
	}
	pos, ok := e.Store.Position(owner, p.ID)
	if !ok || pos.FreeLiquidity.Cmp(oneWad) != 0 {
		t.Fatalf("expected free_liquidity=1e18 via multiprocess, got %+v ok=%v", pos, ok)
	}
}

func TestMultiprocessRollsBackEntireWindowOnLaterFailure(t *testing.T) {
	owner := addr(9)
	e, asset, quote := newTestEngine(t, owner)

	first := encodeCreatePairFrame(asset, quote, 18, 6)
	second := encodeCreatePairFrame(asset, quote, 18, 6) // duplicate, fails
	payload := encodeJumpEnvelope(first, second)

	if err := e.Multiprocess(owner, payload); err == nil {
		t.Fatal("expected the second instruction's PairExists error to fail the whole batch")
	}
	if _, err := e.Store.CreatePair(asset, quote, 18, 6); err != nil {
		t.Fatalf("expected the first instruction's pair creation to have been rolled back too: %v", err)
	}
}

func encodeJumpEnvelope(frames ...[]byte) []byte {
	out := []byte{jumpMarker, byte(len(frames) >> 8), byte(len(frames))}
	for _, f := range frames {
		out = append(out, byte(len(f)>>8), byte(len(f)))
		out = append(out, f...)
	}
	return out
}

func encodeCreatePairFrame(asset, quote adapter.Address, assetDecimals, quoteDecimals byte) []byte {
	frame := make([]byte, 0, 1+20+20+2)
	frame = append(frame, OpCreatePair)
	frame = append(frame, asset[:]...)
	frame = append(frame, quote[:]...)
	frame = append(frame, assetDecimals, quoteDecimals)
	return frame
}

func encodeAllocateFrame(poolID uint64, deltaLiquidity *big.Int, useMax bool) []byte {
	flag := byte(0)
	if useMax {
		flag = useMaxFlag
	}
	frame := make([]byte, 0, 1+8+32)
	frame = append(frame, flag|OpAllocate)
	idBytes := make([]byte, 8)
	for i := 0; i < 8; i++ {
		idBytes[7-i] = byte(poolID >> (8 * i))
	}
	frame = append(frame, idBytes...)
	amountBytes := deltaLiquidity.Bytes()
	padded := make([]byte, 32)
	copy(padded[32-len(amountBytes):], amountBytes)
	frame = append(frame, padded...)
	return frame
}
