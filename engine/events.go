// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"math/big"

	"github.com/luxfi/rmm/adapter"
)

// Event kinds, matching the external-interfaces event list.
const (
	EventCreatePair       = "CreatePair"
	EventCreatePool       = "CreatePool"
	EventAllocate         = "Allocate"
	EventDeallocate       = "Deallocate"
	EventSwap             = "Swap"
	EventCollect          = "Collect"
	EventChangeParameters = "ChangeParameters"
	EventDeposit          = "Deposit"
	EventDraw             = "Draw"
)

// Event is a single observed effect of an operation, emitted in effect
// order. Not every field is populated for every Kind; callers should only
// read the fields documented for the Kind they're inspecting.
type Event struct {
	Kind string

	PairID uint32 // CreatePair
	PoolID uint64 // pool-scoped events

	Owner adapter.Address

	TokenA, TokenB adapter.Address
	AmountA        *big.Int
	AmountB        *big.Int

	// TraceID and Tag correlate every event from one dispatched operation:
	// TraceID is a random per-operation identifier for log correlation, Tag
	// is a short deterministic digest of (caller, operation sequence) for
	// deduplication and replay matching.
	TraceID string
	Tag     string
}
