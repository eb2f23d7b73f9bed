// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package adapter defines the external collaborator interfaces the engine
// consumes (tokens, the wrapped-native adapter, the clock and caller
// identity) and ships deterministic in-memory implementations suitable for
// tests and the demo CLI. The on-chain execution host, real token
// contracts, and the wire-level instruction codec are explicitly not this
// package's concern — only the shapes the core core depends on are.
package adapter

import (
	"github.com/holiman/uint256"
)

// Address is an opaque collaborator identity (an account or a token).
type Address [20]byte

// Token is the capability surface the engine needs from an ERC-20-like
// asset: balance observation and the two transfer primitives used during
// settlement.
type Token interface {
	BalanceOf(owner Address) (*uint256.Int, error)
	Transfer(to Address, amount *uint256.Int) error
	TransferFrom(from, to Address, amount *uint256.Int) error
	Decimals() uint8
}

// WrappedNative additionally supports wrapping/unwrapping the chain's
// native asset.
type WrappedNative interface {
	Token
	Deposit(amount *uint256.Int) error
	Withdraw(amount *uint256.Int) error
}

// Clock supplies the current time, in seconds. The engine never derives
// time from anything but this collaborator.
type Clock interface {
	Now() uint64
}

// CallerContext identifies the current external caller and any native
// value attached to the call.
type CallerContext interface {
	Caller() Address
	Value() *uint256.Int
}
