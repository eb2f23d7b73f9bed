// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package adapter

import (
	"fmt"

	"github.com/holiman/uint256"
)

// MemoryToken is a deterministic, in-process Token used by tests and the
// demo CLI. Transfers move balances between addresses directly; there is
// no allowance model since the engine is always the effective spender.
type MemoryToken struct {
	decimals uint8
	balances map[Address]*uint256.Int
}

// NewMemoryToken constructs a token with the given decimal width and
// initial balances.
func NewMemoryToken(decimals uint8, initial map[Address]*uint256.Int) *MemoryToken {
	balances := make(map[Address]*uint256.Int, len(initial))
	for addr, bal := range initial {
		balances[addr] = new(uint256.Int).Set(bal)
	}
	return &MemoryToken{decimals: decimals, balances: balances}
}

func (t *MemoryToken) Decimals() uint8 { return t.decimals }

func (t *MemoryToken) BalanceOf(owner Address) (*uint256.Int, error) {
	bal, ok := t.balances[owner]
	if !ok {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Set(bal), nil
}

func (t *MemoryToken) Transfer(to Address, amount *uint256.Int) error {
	return t.move(Address{}, to, amount)
}

func (t *MemoryToken) TransferFrom(from, to Address, amount *uint256.Int) error {
	return t.move(from, to, amount)
}

func (t *MemoryToken) move(from, to Address, amount *uint256.Int) error {
	fromBal, ok := t.balances[from]
	if !ok {
		fromBal = new(uint256.Int)
	}
	if fromBal.Lt(amount) {
		return fmt.Errorf("memory token: insufficient balance for %x", from)
	}
	t.balances[from] = new(uint256.Int).Sub(fromBal, amount)

	toBal, ok := t.balances[to]
	if !ok {
		toBal = new(uint256.Int)
	}
	t.balances[to] = new(uint256.Int).Add(toBal, amount)
	return nil
}

// MemoryWrappedNative adds Deposit/Withdraw bookkeeping on top of
// MemoryToken, crediting/debiting a single reserve address that stands in
// for the wrapper contract's own balance.
type MemoryWrappedNative struct {
	*MemoryToken
	self Address
}

func NewMemoryWrappedNative(decimals uint8, self Address) *MemoryWrappedNative {
	return &MemoryWrappedNative{
		MemoryToken: NewMemoryToken(decimals, nil),
		self:        self,
	}
}

// Deposit mints amount of the wrapped token to self; the native units
// themselves arrive out-of-band in this test double.
func (w *MemoryWrappedNative) Deposit(amount *uint256.Int) error {
	bal, ok := w.balances[w.self]
	if !ok {
		bal = new(uint256.Int)
	}
	w.balances[w.self] = new(uint256.Int).Add(bal, amount)
	return nil
}

// Withdraw burns amount of the wrapped token from self.
func (w *MemoryWrappedNative) Withdraw(amount *uint256.Int) error {
	bal, ok := w.balances[w.self]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("memory wrapped native: insufficient balance for %x", w.self)
	}
	w.balances[w.self] = new(uint256.Int).Sub(bal, amount)
	return nil
}

// FixedClock is a Clock whose reading advances only when told to, for
// deterministic JIT-policy and expiry tests.
type FixedClock struct {
	now uint64
}

func NewFixedClock(now uint64) *FixedClock { return &FixedClock{now: now} }

func (c *FixedClock) Now() uint64 { return c.now }

func (c *FixedClock) Advance(seconds uint64) { c.now += seconds }

// StaticCaller is a CallerContext with a fixed identity and value.
type StaticCaller struct {
	addr  Address
	value *uint256.Int
}

func NewStaticCaller(addr Address, value *uint256.Int) *StaticCaller {
	if value == nil {
		value = new(uint256.Int)
	}
	return &StaticCaller{addr: addr, value: value}
}

func (c *StaticCaller) Caller() Address        { return c.addr }
func (c *StaticCaller) Value() *uint256.Int    { return new(uint256.Int).Set(c.value) }
