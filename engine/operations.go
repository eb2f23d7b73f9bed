// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/luxfi/rmm/adapter"
	"github.com/luxfi/rmm/errs"
	"github.com/luxfi/rmm/pool"
	"github.com/luxfi/rmm/swap"
	"github.com/luxfi/rmm/wad"
)

func toU256(n *big.Int) (*uint256.Int, error) {
	u, overflow := uint256.FromBig(n)
	if overflow {
		return nil, &errs.CastOverflow{Value: n.String()}
	}
	return u, nil
}

// Each public operation below is a thin dispatch wrapper around a private
// "do"-prefixed body. multiprocess calls the same bodies directly, in
// sequence, inside a single shared settlement window (debits and credits
// across instructions are netted, per the batch semantics).

// CreatePair registers a new (asset, quote) token identity.
func (e *Engine) CreatePair(caller, asset, quote adapter.Address, assetDecimals, quoteDecimals uint8) (uint32, error) {
	var pairID uint32
	err := e.dispatch(caller, func() error {
		id, err := e.doCreatePair(caller, asset, quote, assetDecimals, quoteDecimals)
		pairID = id
		return err
	})
	return pairID, err
}

func (e *Engine) doCreatePair(caller, asset, quote adapter.Address, assetDecimals, quoteDecimals uint8) (uint32, error) {
	id, err := e.Store.CreatePair(asset, quote, assetDecimals, quoteDecimals)
	if err != nil {
		return 0, err
	}
	e.emit(Event{Kind: EventCreatePair, PairID: id, TokenA: asset, TokenB: quote})
	return id, nil
}

// CreatePool registers a new pool against a pair at the requested spot
// price and trading parameters.
func (e *Engine) CreatePool(caller adapter.Address, req pool.CreatePoolParams) (*pool.Pool, error) {
	var created *pool.Pool
	err := e.dispatch(caller, func() error {
		p, err := e.doCreatePool(caller, req)
		created = p
		return err
	})
	return created, err
}

func (e *Engine) doCreatePool(caller adapter.Address, req pool.CreatePoolParams) (*pool.Pool, error) {
	req.Now = e.Clock.Now()
	p, err := e.Store.CreatePool(req)
	if err != nil {
		return nil, err
	}
	e.emit(Event{Kind: EventCreatePool, PoolID: p.ID, Owner: caller})
	return p, nil
}

// tokensForPool resolves the pair backing poolID.
func (e *Engine) tokensForPool(poolID uint64) (*pool.Pair, error) {
	p, err := e.Store.Pool(poolID)
	if err != nil {
		return nil, err
	}
	return e.Store.Pair(p.PairID)
}

// Allocate adds liquidity to owner's position in poolID, pulling the
// implied asset/quote amounts from owner at settlement.
func (e *Engine) Allocate(caller adapter.Address, poolID uint64, useMax bool, deltaLiquidity *big.Int) error {
	return e.dispatch(caller, func() error {
		return e.doAllocate(caller, poolID, useMax, deltaLiquidity)
	})
}

func (e *Engine) doAllocate(caller adapter.Address, poolID uint64, useMax bool, deltaLiquidity *big.Int) error {
	pair, err := e.tokensForPool(poolID)
	if err != nil {
		return err
	}

	var ownerAssetWad, ownerQuoteWad *big.Int
	if useMax {
		ownerAssetWad, ownerQuoteWad, err = e.ownerBalancesWad(caller, pair)
		if err != nil {
			return err
		}
	}

	delta, err := e.Store.Allocate(caller, poolID, useMax, deltaLiquidity, ownerAssetWad, ownerQuoteWad, e.Clock.Now())
	if err != nil {
		return err
	}

	assetNative := wad.ScaleFromWadDown(delta.DeltaAsset, pair.AssetDecimals)
	quoteNative := wad.ScaleFromWadDown(delta.DeltaQuote, pair.QuoteDecimals)

	assetU256, err := toU256(assetNative)
	if err != nil {
		return err
	}
	quoteU256, err := toU256(quoteNative)
	if err != nil {
		return err
	}
	e.Ledger.Debit(caller, pair.Asset, assetU256)
	e.Ledger.Debit(caller, pair.Quote, quoteU256)

	e.emit(Event{Kind: EventAllocate, PoolID: poolID, Owner: caller, TokenA: pair.Asset, TokenB: pair.Quote, AmountA: assetNative, AmountB: quoteNative})
	return nil
}

func (e *Engine) ownerBalancesWad(owner adapter.Address, pair *pool.Pair) (assetWad, quoteWad *big.Int, err error) {
	assetToken := e.Ledger.TokenOf(pair.Asset)
	quoteToken := e.Ledger.TokenOf(pair.Quote)
	if assetToken == nil || quoteToken == nil {
		return nil, nil, errs.ErrNonExistentPool
	}
	assetBal, err := assetToken.BalanceOf(owner)
	if err != nil {
		return nil, nil, err
	}
	quoteBal, err := quoteToken.BalanceOf(owner)
	if err != nil {
		return nil, nil, err
	}
	return wad.ScaleToWad(assetBal.ToBig(), pair.AssetDecimals), wad.ScaleToWad(quoteBal.ToBig(), pair.QuoteDecimals), nil
}

// Deallocate removes liquidity from owner's position in poolID, crediting
// the implied asset/quote amounts to the caller's persistent balance.
func (e *Engine) Deallocate(caller adapter.Address, poolID uint64, useMax bool, deltaLiquidity *big.Int) error {
	return e.dispatch(caller, func() error {
		return e.doDeallocate(caller, poolID, useMax, deltaLiquidity)
	})
}

func (e *Engine) doDeallocate(caller adapter.Address, poolID uint64, useMax bool, deltaLiquidity *big.Int) error {
	pair, err := e.tokensForPool(poolID)
	if err != nil {
		return err
	}

	delta, err := e.Store.Deallocate(caller, poolID, useMax, deltaLiquidity, e.Clock.Now())
	if err != nil {
		return err
	}

	assetNative := wad.ScaleFromWadDown(delta.DeltaAsset, pair.AssetDecimals)
	quoteNative := wad.ScaleFromWadDown(delta.DeltaQuote, pair.QuoteDecimals)

	assetU256, err := toU256(assetNative)
	if err != nil {
		return err
	}
	quoteU256, err := toU256(quoteNative)
	if err != nil {
		return err
	}
	e.Ledger.Credit(caller, pair.Asset, assetU256)
	e.Ledger.Credit(caller, pair.Quote, quoteU256)

	e.emit(Event{Kind: EventDeallocate, PoolID: poolID, Owner: caller, TokenA: pair.Asset, TokenB: pair.Quote, AmountA: assetNative, AmountB: quoteNative})
	return nil
}

// Claim withdraws up to (assetRequested, quoteRequested) from owner's
// accrued fees in poolID into their persistent balance. pool.MaxOwed
// requests everything owed.
func (e *Engine) Claim(caller adapter.Address, poolID uint64, assetRequested, quoteRequested *big.Int) error {
	return e.dispatch(caller, func() error {
		return e.doClaim(caller, poolID, assetRequested, quoteRequested)
	})
}

func (e *Engine) doClaim(caller adapter.Address, poolID uint64, assetRequested, quoteRequested *big.Int) error {
	pair, err := e.tokensForPool(poolID)
	if err != nil {
		return err
	}
	assetOwed, quoteOwed, err := e.Store.Claim(caller, poolID, assetRequested, quoteRequested)
	if err != nil {
		return err
	}

	assetNative := wad.ScaleFromWadDown(assetOwed, pair.AssetDecimals)
	quoteNative := wad.ScaleFromWadDown(quoteOwed, pair.QuoteDecimals)

	if assetNative.Sign() > 0 {
		u, err := toU256(assetNative)
		if err != nil {
			return err
		}
		e.Ledger.Credit(caller, pair.Asset, u)
	}
	if quoteNative.Sign() > 0 {
		u, err := toU256(quoteNative)
		if err != nil {
			return err
		}
		e.Ledger.Credit(caller, pair.Quote, u)
	}

	e.emit(Event{Kind: EventCollect, PoolID: poolID, Owner: caller, TokenA: pair.Asset, TokenB: pair.Quote, AmountA: assetNative, AmountB: quoteNative})
	return nil
}

// SwapInput mirrors swap.Input plus whatever UseMax needs resolved against
// the caller's current token balance.
type SwapInput struct {
	PoolID             uint64
	SellAsset          bool
	UseMax             bool
	InputAmount        *big.Int
	MinOutput          *big.Int
	CallerIsController bool
}

// Swap executes one swap iteration against poolID, pulling the input token
// and crediting the output token to caller at settlement.
func (e *Engine) Swap(caller adapter.Address, in SwapInput) (*swap.Result, error) {
	var result *swap.Result
	err := e.dispatch(caller, func() error {
		res, err := e.doSwap(caller, in)
		result = res
		return err
	})
	return result, err
}

func (e *Engine) doSwap(caller adapter.Address, in SwapInput) (*swap.Result, error) {
	pair, err := e.tokensForPool(in.PoolID)
	if err != nil {
		return nil, err
	}
	inputToken, outputToken := pair.Quote, pair.Asset
	if in.SellAsset {
		inputToken, outputToken = pair.Asset, pair.Quote
	}

	var ownerInputBalance *big.Int
	if in.UseMax {
		t := e.Ledger.TokenOf(inputToken)
		if t == nil {
			return nil, errs.ErrNonExistentPool
		}
		bal, err := t.BalanceOf(caller)
		if err != nil {
			return nil, err
		}
		ownerInputBalance = bal.ToBig()
	}

	res, err := swap.Execute(e.Store, e.Objective, swap.Input{
		UseMax:             in.UseMax,
		PoolID:             in.PoolID,
		SellAsset:          in.SellAsset,
		InputAmount:        in.InputAmount,
		MinOutput:          in.MinOutput,
		CallerIsController: in.CallerIsController,
		OwnerInputBalance:  ownerInputBalance,
	}, e.Clock.Now())
	if err != nil {
		return nil, err
	}

	inputU256, err := toU256(res.InputNative)
	if err != nil {
		return nil, err
	}
	outputU256, err := toU256(res.OutputNative)
	if err != nil {
		return nil, err
	}
	e.Ledger.Debit(caller, inputToken, inputU256)
	e.Ledger.Credit(caller, outputToken, outputU256)

	e.emit(Event{Kind: EventSwap, PoolID: in.PoolID, Owner: caller, TokenA: inputToken, TokenB: outputToken, AmountA: res.InputNative, AmountB: res.OutputNative})
	return res, nil
}
