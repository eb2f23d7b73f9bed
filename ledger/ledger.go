// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger implements the transactional accounting layer: per-token
// reserves, per-(owner,token) virtual balances, the transient warm-token
// set touched by the operation currently in flight, and the end-of-operation
// settlement pass that reconciles the caller's net flow against real token
// balances. The pattern is the flash-accounting idiom of a lock/settle pool
// manager: debits and credits accumulate against a per-caller delta during
// the operation and are only made real — via external transfers — when the
// operation settles.
package ledger

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/luxfi/rmm/adapter"
	"github.com/luxfi/rmm/errs"
)

type ownerToken struct {
	owner adapter.Address
	token adapter.Address
}

// pull is a queued external transferFrom, drained FIFO during settlement.
type pull struct {
	token  adapter.Address
	from   adapter.Address
	amount *uint256.Int
}

// Ledger is the engine's exclusively-owned accounting state.
type Ledger struct {
	reserves map[adapter.Address]*uint256.Int
	balances map[ownerToken]*uint256.Int

	tokens map[adapter.Address]adapter.Token
	self   adapter.Address

	// Transient, scoped to the operation currently in flight.
	caller        adapter.Address
	callerSet     bool
	currentDeltas map[adapter.Address]*big.Int
	warm          []adapter.Address
	warmSet       map[adapter.Address]bool
	pendingPulls  []pull
	settled       bool
}

// New constructs an empty ledger owned by self (the engine's own address,
// as observed by collaborator tokens).
func New(self adapter.Address) *Ledger {
	return &Ledger{
		reserves: make(map[adapter.Address]*uint256.Int),
		balances: make(map[ownerToken]*uint256.Int),
		tokens:   make(map[adapter.Address]adapter.Token),
		self:     self,
		settled:  true,
	}
}

// Clone returns a deep copy, used by the dispatcher to snapshot state
// before an operation so a failure can roll back without ever having
// mutated the live ledger.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		reserves:  make(map[adapter.Address]*uint256.Int, len(l.reserves)),
		balances:  make(map[ownerToken]*uint256.Int, len(l.balances)),
		tokens:    l.tokens, // adapters are shared collaborators, not state
		self:      l.self,
		caller:    l.caller,
		callerSet: l.callerSet,
		settled:   l.settled,
	}
	for k, v := range l.reserves {
		c.reserves[k] = new(uint256.Int).Set(v)
	}
	for k, v := range l.balances {
		c.balances[k] = new(uint256.Int).Set(v)
	}
	if l.currentDeltas != nil {
		c.currentDeltas = make(map[adapter.Address]*big.Int, len(l.currentDeltas))
		for k, v := range l.currentDeltas {
			c.currentDeltas[k] = new(big.Int).Set(v)
		}
	}
	if l.warm != nil {
		c.warm = append([]adapter.Address(nil), l.warm...)
		c.warmSet = make(map[adapter.Address]bool, len(l.warmSet))
		for k, v := range l.warmSet {
			c.warmSet[k] = v
		}
	}
	for _, p := range l.pendingPulls {
		c.pendingPulls = append(c.pendingPulls, pull{token: p.token, from: p.from, amount: new(uint256.Int).Set(p.amount)})
	}
	return c
}

// RegisterToken associates a collaborator Token with the address used to
// key reserves and balances for it.
func (l *Ledger) RegisterToken(token adapter.Address, t adapter.Token) {
	l.tokens[token] = t
}

// TokenOf returns the collaborator registered for token, or nil.
func (l *Ledger) TokenOf(token adapter.Address) adapter.Token {
	return l.tokens[token]
}

// Self returns the engine's own address, as observed by collaborator tokens.
func (l *Ledger) Self() adapter.Address { return l.self }

// CreditPersistent immediately mints amount into owner's persistent virtual
// balance, bypassing the deferred caller-delta accumulator. Used where the
// crediting operation (e.g. deposit) is itself the synchronous source of
// truth for the value arriving, rather than something settled later.
func (l *Ledger) CreditPersistent(owner, token adapter.Address, amount *uint256.Int) {
	key := ownerToken{owner: owner, token: token}
	bal := l.balances[key]
	if bal == nil {
		bal = new(uint256.Int)
	}
	l.balances[key] = new(uint256.Int).Add(bal, amount)
}

// Settled reports whether no operation is in flight.
func (l *Ledger) Settled() bool { return l.settled }

// Warm reports the tokens touched by the current in-flight operation.
func (l *Ledger) Warm() []adapter.Address { return l.warm }

// BeginOperation opens a new settlement window for the given caller. It
// fails if an operation is already in flight (the reentrancy lock lives one
// layer up, in package engine, but this assertion keeps the ledger
// internally consistent even if misused directly).
func (l *Ledger) BeginOperation(caller adapter.Address) error {
	if !l.settled {
		return errs.ErrInvalidReentrancy
	}
	l.caller = caller
	l.callerSet = true
	l.currentDeltas = make(map[adapter.Address]*big.Int)
	l.warm = nil
	l.warmSet = make(map[adapter.Address]bool)
	l.pendingPulls = nil
	l.settled = false
	return nil
}

func (l *Ledger) warmUp(token adapter.Address) {
	if !l.warmSet[token] {
		l.warmSet[token] = true
		l.warm = append(l.warm, token)
	}
}

func (l *Ledger) delta(token adapter.Address) *big.Int {
	d, ok := l.currentDeltas[token]
	if !ok {
		d = new(big.Int)
		l.currentDeltas[token] = d
	}
	return d
}

func u256ToBig(n *uint256.Int) *big.Int {
	return n.ToBig()
}

// Debit increases owner's cost: when owner is the operation's caller, it
// accumulates a negative (owed) delta settled at end-of-operation; for any
// other owner (a position holder being charged directly) it reduces their
// persistent virtual balance immediately.
func (l *Ledger) Debit(owner, token adapter.Address, n *uint256.Int) {
	if l.callerSet && owner == l.caller {
		l.warmUp(token)
		d := l.delta(token)
		d.Sub(d, u256ToBig(n))
		return
	}
	key := ownerToken{owner: owner, token: token}
	bal := l.balances[key]
	if bal == nil {
		bal = new(uint256.Int)
	}
	l.balances[key] = new(uint256.Int).Sub(bal, n)
}

// Credit increases owner's virtual balance; for the operation's caller this
// accumulates a positive delta settled at end-of-operation, for any other
// owner (e.g. a liquidity position earning fees) it credits their
// persistent balance immediately.
func (l *Ledger) Credit(owner, token adapter.Address, n *uint256.Int) {
	if l.callerSet && owner == l.caller {
		l.warmUp(token)
		d := l.delta(token)
		d.Add(d, u256ToBig(n))
		return
	}
	key := ownerToken{owner: owner, token: token}
	bal := l.balances[key]
	if bal == nil {
		bal = new(uint256.Int)
	}
	l.balances[key] = new(uint256.Int).Add(bal, n)
}

// BalanceOf returns owner's persistent virtual balance of token.
func (l *Ledger) BalanceOf(owner, token adapter.Address) *uint256.Int {
	bal := l.balances[ownerToken{owner: owner, token: token}]
	if bal == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(bal)
}

// Increase bumps the internally tracked reserve of token.
func (l *Ledger) Increase(token adapter.Address, n *uint256.Int) {
	r := l.reserves[token]
	if r == nil {
		r = new(uint256.Int)
	}
	l.reserves[token] = new(uint256.Int).Add(r, n)
}

// Decrease reduces the internally tracked reserve of token.
func (l *Ledger) Decrease(token adapter.Address, n *uint256.Int) {
	r := l.reserves[token]
	if r == nil {
		r = new(uint256.Int)
	}
	l.reserves[token] = new(uint256.Int).Sub(r, n)
}

// Reserve returns the current internally tracked reserve of token.
func (l *Ledger) Reserve(token adapter.Address) *uint256.Int {
	r := l.reserves[token]
	if r == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(r)
}

// PullExternal draws amount of token from owner's external wallet into
// self's custody, bumping the tracked reserve. Unlike Debit/Credit this acts
// immediately rather than deferring to Settle: fund needs the pull to land
// before the rest of the operation reasons about the caller's resulting
// persistent balance.
func (l *Ledger) PullExternal(token, owner adapter.Address, amount *uint256.Int) error {
	t, ok := l.tokens[token]
	if !ok {
		return errs.ErrNonExistentPool
	}
	if err := t.TransferFrom(owner, l.self, amount); err != nil {
		return err
	}
	l.Increase(token, amount)
	return nil
}

// PushExternal sends amount of token out of self's custody to owner,
// reducing the tracked reserve. The reserve is restored if the transfer
// itself fails.
func (l *Ledger) PushExternal(token, owner adapter.Address, amount *uint256.Int) error {
	t, ok := l.tokens[token]
	if !ok {
		return errs.ErrNonExistentPool
	}
	l.Decrease(token, amount)
	if err := t.Transfer(owner, amount); err != nil {
		l.Increase(token, amount)
		return err
	}
	return nil
}

// Fund pulls amount of token from owner's wallet and credits their
// persistent virtual balance by the same amount, available for later use
// without a second approval/transfer round-trip.
func (l *Ledger) Fund(token, owner adapter.Address, amount *uint256.Int) error {
	if err := l.PullExternal(token, owner, amount); err != nil {
		return err
	}
	key := ownerToken{owner: owner, token: token}
	bal := l.balances[key]
	if bal == nil {
		bal = new(uint256.Int)
	}
	l.balances[key] = new(uint256.Int).Add(bal, amount)
	return nil
}

// Draw debits owner's persistent virtual balance and pushes the same amount
// out to their wallet. Fails with ErrDrawBalance if the balance is short.
func (l *Ledger) Draw(token, owner adapter.Address, amount *uint256.Int) error {
	key := ownerToken{owner: owner, token: token}
	bal := l.balances[key]
	if bal == nil {
		bal = new(uint256.Int)
	}
	if bal.Lt(amount) {
		return errs.ErrDrawBalance
	}
	if err := l.PushExternal(token, owner, amount); err != nil {
		return err
	}
	l.balances[key] = new(uint256.Int).Sub(bal, amount)
	return nil
}

// GetNetBalance returns reserves[token] - external_balance_of(self, token).
func (l *Ledger) GetNetBalance(token adapter.Address) (*big.Int, error) {
	t, ok := l.tokens[token]
	if !ok {
		return nil, errs.ErrNonExistentPool
	}
	ext, err := t.BalanceOf(l.self)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(u256ToBig(l.Reserve(token)), u256ToBig(ext)), nil
}

// Settle runs the end-of-operation reconciliation pass described in the
// accounting component design: each warm token's net caller delta is
// reconciled in LIFO order against the caller's persistent virtual balance,
// any shortfall is queued as an external pull, the FIFO of pulls is
// drained, and the operation is marked settled.
func (l *Ledger) Settle() error {
	if !l.callerSet {
		return errs.ErrInvalidSettlement
	}

	for i := len(l.warm) - 1; i >= 0; i-- {
		token := l.warm[i]
		d := l.delta(token)

		switch d.Sign() {
		case -1: // caller owes
			owed := new(big.Int).Neg(d)
			key := ownerToken{owner: l.caller, token: token}
			have := l.balances[key]
			if have == nil {
				have = new(uint256.Int)
			}
			haveBig := u256ToBig(have)
			applied := new(big.Int).Set(owed)
			if haveBig.Cmp(owed) < 0 {
				applied.Set(haveBig)
			}
			if applied.Sign() > 0 {
				appliedU256, overflow := uint256.FromBig(applied)
				if overflow {
					return &errs.CastOverflow{Value: applied.String()}
				}
				l.balances[key] = new(uint256.Int).Sub(have, appliedU256)
			}
			remainder := new(big.Int).Sub(owed, applied)
			if remainder.Sign() > 0 {
				remU256, overflow := uint256.FromBig(remainder)
				if overflow {
					return &errs.CastOverflow{Value: remainder.String()}
				}
				l.pendingPulls = append(l.pendingPulls, pull{token: token, from: l.caller, amount: remU256})
			}
		case 1: // caller is owed: mints their persistent claim, reserves are
			// unaffected since the value was already in custody (e.g. a
			// swap's output, reassigned from the pool to the caller rather
			// than newly arrived from outside).
			creditedU256, overflow := uint256.FromBig(d)
			if overflow {
				return &errs.CastOverflow{Value: d.String()}
			}
			key := ownerToken{owner: l.caller, token: token}
			have := l.balances[key]
			if have == nil {
				have = new(uint256.Int)
			}
			l.balances[key] = new(uint256.Int).Add(have, creditedU256)
		}
	}

	for _, p := range l.pendingPulls {
		t, ok := l.tokens[p.token]
		if !ok {
			return errs.ErrNonExistentPool
		}
		if err := t.TransferFrom(p.from, l.self, p.amount); err != nil {
			return err
		}
		l.Increase(p.token, p.amount)
	}

	l.warm = nil
	l.warmSet = nil
	l.currentDeltas = nil
	l.pendingPulls = nil
	l.callerSet = false
	l.settled = true
	return nil
}
