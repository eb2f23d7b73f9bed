// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package engine is the operation dispatcher: deposit, fund, draw,
// multiprocess and change_parameters, each gated by a single reentrancy
// lock and wrapped in a settlement window. A failure anywhere inside an
// operation rolls the pool store and ledger back to their pre-operation
// snapshots; nothing partial is ever left committed.
package engine

import (
	"encoding/binary"
	"encoding/hex"
	"math/big"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/zeebo/blake3"

	"github.com/luxfi/rmm/adapter"
	"github.com/luxfi/rmm/errs"
	"github.com/luxfi/rmm/ledger"
	"github.com/luxfi/rmm/pool"
	"github.com/luxfi/rmm/swap"
)

// Engine owns the pool store and ledger exclusively; locked is the
// engine-wide Idle/Busy reentrancy flag described in the concurrency model
// (one flag, no lock hierarchy, no goroutine parallelism).
type Engine struct {
	Store         *pool.Store
	Ledger        *ledger.Ledger
	Objective     swap.Objective
	Clock         adapter.Clock
	WrappedNative adapter.Address

	locked bool
	events []Event
	opSeq  uint64

	currentTraceID string
	currentTag     string
}

// New wires a dispatcher around an already-constructed store and ledger.
func New(store *pool.Store, l *ledger.Ledger, obj swap.Objective, clock adapter.Clock, wrappedNative adapter.Address) *Engine {
	return &Engine{
		Store:         store,
		Ledger:        l,
		Objective:     obj,
		Clock:         clock,
		WrappedNative: wrappedNative,
	}
}

// Events returns every event appended by operations run so far, in effect
// order.
func (e *Engine) Events() []Event { return e.events }

func (e *Engine) emit(ev Event) {
	ev.TraceID = e.currentTraceID
	ev.Tag = e.currentTag
	e.events = append(e.events, ev)
}

// operationTag derives a short deterministic correlation tag from the
// caller and the engine's monotonic operation counter: the first 8 bytes of
// the blake3 digest of caller||seq, hex-encoded.
func operationTag(caller adapter.Address, seq uint64) string {
	h := blake3.New()
	h.Write(caller[:])
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)
	h.Write(seqBytes[:])
	var out [8]byte
	h.Digest().Read(out[:])
	return hex.EncodeToString(out[:])
}

// dispatch is the Idle->Busy->Idle reentrancy gate and settlement window
// shared by every external operation. It snapshots store and ledger before
// caller begins, opens a ledger operation, runs body, settles, and on any
// failure restores the pre-operation snapshots so nothing partial survives.
func (e *Engine) dispatch(caller adapter.Address, body func() error) error {
	if e.locked {
		return errs.ErrInvalidReentrancy
	}
	e.locked = true
	e.opSeq++
	e.currentTraceID = uuid.New().String()
	e.currentTag = operationTag(caller, e.opSeq)
	defer func() { e.locked = false }()

	storeSnapshot := e.Store.Clone()
	ledgerSnapshot := e.Ledger.Clone()
	rollback := func() {
		e.Store = storeSnapshot
		e.Ledger = ledgerSnapshot
	}

	if err := e.Ledger.BeginOperation(caller); err != nil {
		return err
	}

	if err := body(); err != nil {
		rollback()
		return err
	}

	if err := e.Ledger.Settle(); err != nil {
		rollback()
		return err
	}
	if !e.Ledger.Settled() {
		rollback()
		return errs.ErrInvalidSettlement
	}
	return nil
}

// Deposit wraps value's native units into a WETH-like credit for caller.
func (e *Engine) Deposit(caller adapter.Address, value *uint256.Int) error {
	return e.dispatch(caller, func() error {
		if value == nil || value.IsZero() {
			return errs.ErrZeroAmounts
		}
		native, ok := e.Ledger.TokenOf(e.WrappedNative).(adapter.WrappedNative)
		if !ok {
			return errs.ErrNonExistentPool
		}
		if err := native.Deposit(value); err != nil {
			return err
		}
		e.Ledger.Increase(e.WrappedNative, value)
		e.Ledger.CreditPersistent(caller, e.WrappedNative, value)
		e.emit(Event{Kind: EventDeposit, Owner: caller, TokenA: e.WrappedNative, AmountA: value.ToBig()})
		return nil
	})
}

// Fund pulls amount of token (or the caller's entire external balance, if
// useMax) into the contract's custody and credits it to caller's
// persistent virtual balance.
func (e *Engine) Fund(caller, token adapter.Address, amount *big.Int, useMax bool) error {
	return e.dispatch(caller, func() error {
		resolved, err := e.resolveFundAmount(caller, token, amount, useMax)
		if err != nil {
			return err
		}
		amountU256, overflow := uint256.FromBig(resolved)
		if overflow {
			return &errs.CastOverflow{Value: resolved.String()}
		}
		if err := e.Ledger.Fund(token, caller, amountU256); err != nil {
			return err
		}
		e.emit(Event{Kind: EventDeposit, Owner: caller, TokenA: token, AmountA: resolved})
		return nil
	})
}

func (e *Engine) resolveFundAmount(caller, token adapter.Address, amount *big.Int, useMax bool) (*big.Int, error) {
	if !useMax {
		if amount == nil || amount.Sign() <= 0 {
			return nil, errs.ErrZeroAmounts
		}
		return amount, nil
	}
	t := e.Ledger.TokenOf(token)
	if t == nil {
		return nil, errs.ErrNonExistentPool
	}
	bal, err := t.BalanceOf(caller)
	if err != nil {
		return nil, err
	}
	if bal.IsZero() {
		return nil, errs.ErrZeroAmounts
	}
	return bal.ToBig(), nil
}

// Draw debits caller's persistent virtual balance of token (or its
// entirety, if useMax) and transfers it out to "to", unwrapping first if
// token is the wrapped native asset.
func (e *Engine) Draw(caller, token, to adapter.Address, amount *big.Int, useMax bool) error {
	return e.dispatch(caller, func() error {
		if to == e.selfAddress() {
			return errs.ErrInvalidTransfer
		}
		resolved := amount
		if useMax {
			resolved = e.Ledger.BalanceOf(caller, token).ToBig()
		}
		if resolved == nil || resolved.Sign() <= 0 {
			return errs.ErrZeroAmounts
		}
		amountU256, overflow := uint256.FromBig(resolved)
		if overflow {
			return &errs.CastOverflow{Value: resolved.String()}
		}
		if e.Ledger.BalanceOf(caller, token).Cmp(amountU256) < 0 {
			return errs.ErrDrawBalance
		}

		if token == e.WrappedNative {
			native, ok := e.Ledger.TokenOf(token).(adapter.WrappedNative)
			if !ok {
				return errs.ErrNonExistentPool
			}
			if err := native.Withdraw(amountU256); err != nil {
				return err
			}
		}
		if err := e.Ledger.PushExternal(token, to, amountU256); err != nil {
			return err
		}
		// The balance check above guarantees Settle covers this debit from
		// the caller's persistent balance without any external pull.
		e.Ledger.Debit(caller, token, amountU256)
		e.emit(Event{Kind: EventDraw, Owner: caller, TokenA: token, AmountA: resolved})
		return nil
	})
}

func (e *Engine) selfAddress() adapter.Address {
	return e.Ledger.Self()
}

// ChangeParameters updates a controller-owned pool's mutable parameters.
func (e *Engine) ChangeParameters(caller adapter.Address, poolID uint64, priorityFeeBps, feeBps uint32, jitSeconds uint64) error {
	return e.dispatch(caller, func() error {
		if err := e.Store.ChangeParameters(poolID, caller, priorityFeeBps, feeBps, jitSeconds); err != nil {
			return err
		}
		e.emit(Event{Kind: EventChangeParameters, PoolID: poolID, Owner: caller})
		return nil
	})
}
