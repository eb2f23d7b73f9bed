// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command rmmengine is a demo driver for the RMM engine: it wires an
// in-memory ledger and token pair, runs a pair/pool/allocate/swap
// lifecycle, and prints the resulting events.
package main

import (
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/holiman/uint256"

	"github.com/luxfi/rmm/adapter"
	"github.com/luxfi/rmm/config"
	"github.com/luxfi/rmm/engine"
	"github.com/luxfi/rmm/ledger"
	"github.com/luxfi/rmm/pool"
	"github.com/luxfi/rmm/rmmlog"
	"github.com/luxfi/rmm/swap"
)

var (
	version = "0.1.0-dev"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Config file path (optional)")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("rmmengine %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	log := rmmlog.New(&rmmlog.Config{
		Level:  cfg.Logging.Level,
		Prefix: "rmmengine",
	})
	rmmlog.SetDefault(log)

	log.Info("starting demo engine", "assetDecimals", cfg.Engine.AssetDecimals, "quoteDecimals", cfg.Engine.QuoteDecimals)

	owner := demoAddress(0x01)
	self := demoAddress(0xEE)
	asset := demoAddress(0x0A)
	quote := demoAddress(0x0B)

	assetToken := adapter.NewMemoryToken(cfg.Engine.AssetDecimals, map[adapter.Address]*uint256.Int{
		owner: uint256.NewInt(10_000_000_000_000_000_000),
	})
	quoteToken := adapter.NewMemoryToken(cfg.Engine.QuoteDecimals, map[adapter.Address]*uint256.Int{
		owner: uint256.NewInt(20_000_000_000),
	})

	l := ledger.New(self)
	l.RegisterToken(asset, assetToken)
	l.RegisterToken(quote, quoteToken)

	store := pool.NewStore()
	clock := adapter.NewFixedClock(1_700_000_000)
	e := engine.New(store, l, swap.CoveredCall{}, clock, adapter.Address{})

	pairID, err := e.CreatePair(owner, asset, quote, cfg.Engine.AssetDecimals, cfg.Engine.QuoteDecimals)
	if err != nil {
		log.Fatal("CreatePair failed", "error", err)
	}
	log.Info("pair created", "pairID", pairID)

	p, err := e.CreatePool(owner, pool.CreatePoolParams{
		PairRef:         pairID,
		FeeBps:          30,
		VolatilityBps:   10_000,
		DurationSeconds: 31_536_000,
		JitSeconds:      4,
		MaxPrice:        bigFromString("3000000000000000000000"),
		Price:           bigFromString("2000000000000000000000"),
	})
	if err != nil {
		log.Fatal("CreatePool failed", "error", err)
	}
	log.Info("pool created", "poolID", p.ID)

	if err := e.Allocate(owner, p.ID, false, bigFromString("1000000000000000000")); err != nil {
		log.Fatal("Allocate failed", "error", err)
	}
	log.Info("liquidity allocated", "poolID", p.ID, "liquidity", "1.0")

	res, err := e.Swap(owner, engine.SwapInput{
		PoolID:      p.ID,
		SellAsset:   true,
		InputAmount: bigFromString("100000000000000000"),
		MinOutput:   bigFromString("0"),
	})
	if err != nil {
		log.Fatal("Swap failed", "error", err)
	}
	log.Info("swap executed", "input", res.InputNative.String(), "output", res.OutputNative.String())

	for _, ev := range e.Events() {
		log.Info("event", "kind", ev.Kind, "poolID", ev.PoolID, "owner", ev.Owner, "trace", ev.TraceID, "tag", ev.Tag)
	}
}

func demoAddress(b byte) adapter.Address {
	var a adapter.Address
	a[19] = b
	return a
}

func bigFromString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad bigint literal: " + s)
	}
	return n
}
