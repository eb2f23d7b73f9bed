// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/luxfi/rmm/adapter"
	"github.com/luxfi/rmm/curve"
	"github.com/luxfi/rmm/errs"
)

type pairKey struct {
	asset, quote adapter.Address
}

type positionKey struct {
	owner  adapter.Address
	poolID uint64
}

// Store owns the pair, pool and position tables. Positions reference pools
// by id, pools reference pairs by id; there are no back-pointers, so the
// tables are plain dense-key maps rather than a graph of shared pointers.
type Store struct {
	pairs        map[uint32]*Pair
	pairIndex    map[pairKey]uint32
	nextPairID   uint32
	mostRecentPair uint32

	pools          map[uint64]*Pool
	poolNonceByPair map[uint32]uint32
	poolsByPair    map[uint32][]uint64

	positions map[positionKey]*Position
}

// NewStore constructs an empty pool/pair/position store.
func NewStore() *Store {
	return &Store{
		pairs:           make(map[uint32]*Pair),
		pairIndex:       make(map[pairKey]uint32),
		pools:           make(map[uint64]*Pool),
		poolNonceByPair: make(map[uint32]uint32),
		poolsByPair:     make(map[uint32][]uint64),
		positions:       make(map[positionKey]*Position),
	}
}

// Clone returns a deep copy, used by the dispatcher to snapshot state
// before an operation so a failure can roll back without ever mutating the
// live store.
func (s *Store) Clone() *Store {
	c := NewStore()
	c.nextPairID = s.nextPairID
	c.mostRecentPair = s.mostRecentPair
	for k, v := range s.pairs {
		cp := *v
		c.pairs[k] = &cp
	}
	for k, v := range s.pairIndex {
		c.pairIndex[k] = v
	}
	for k, v := range s.poolNonceByPair {
		c.poolNonceByPair[k] = v
	}
	for k, v := range s.poolsByPair {
		c.poolsByPair[k] = append([]uint64(nil), v...)
	}
	for k, v := range s.pools {
		cp := *v
		cp.VirtualX = new(big.Int).Set(v.VirtualX)
		cp.VirtualY = new(big.Int).Set(v.VirtualY)
		cp.Liquidity = new(big.Int).Set(v.Liquidity)
		cp.FeeGrowthAssetGlobal = new(uint256.Int).Set(v.FeeGrowthAssetGlobal)
		cp.FeeGrowthQuoteGlobal = new(uint256.Int).Set(v.FeeGrowthQuoteGlobal)
		cp.InvariantGrowthGlobal = new(uint256.Int).Set(v.InvariantGrowthGlobal)
		if v.Controller != nil {
			ctrl := *v.Controller
			cp.Controller = &ctrl
		}
		pp := v.Params
		pp.MaxPrice = new(big.Int).Set(v.Params.MaxPrice)
		cp.Params = pp
		c.pools[k] = &cp
	}
	for k, v := range s.positions {
		cp := *v
		cp.FreeLiquidity = new(big.Int).Set(v.FreeLiquidity)
		cp.TokensOwedAsset = new(big.Int).Set(v.TokensOwedAsset)
		cp.TokensOwedQuote = new(big.Int).Set(v.TokensOwedQuote)
		cp.FeeGrowthAssetLast = new(uint256.Int).Set(v.FeeGrowthAssetLast)
		cp.FeeGrowthQuoteLast = new(uint256.Int).Set(v.FeeGrowthQuoteLast)
		cp.InvariantGrowthLast = new(uint256.Int).Set(v.InvariantGrowthLast)
		c.positions[k] = &cp
	}
	return c
}

// CreatePair registers a new (asset, quote) identity.
func (s *Store) CreatePair(asset, quote adapter.Address, assetDecimals, quoteDecimals uint8) (uint32, error) {
	if asset == quote {
		return 0, errs.ErrSameToken
	}
	if assetDecimals < MinDecimals || assetDecimals > MaxDecimals ||
		quoteDecimals < MinDecimals || quoteDecimals > MaxDecimals {
		return 0, errs.ErrInvalidDecimals
	}
	key := pairKey{asset: asset, quote: quote}
	if _, exists := s.pairIndex[key]; exists {
		return 0, errs.ErrPairExists
	}

	s.nextPairID++
	id := s.nextPairID
	s.pairs[id] = &Pair{
		ID:            id,
		Asset:         asset,
		Quote:         quote,
		AssetDecimals: assetDecimals,
		QuoteDecimals: quoteDecimals,
	}
	s.pairIndex[key] = id
	s.mostRecentPair = id
	return id, nil
}

func (s *Store) Pair(id uint32) (*Pair, error) {
	p, ok := s.pairs[id]
	if !ok {
		return nil, errs.ErrNonExistentPair
	}
	return p, nil
}

// CreatePoolParams bundles the requested parameters for CreatePool.
type CreatePoolParams struct {
	PairRef        uint32 // 0 means "most recently created pair"
	Controller     *adapter.Address
	PriorityFeeBps uint32
	FeeBps         uint32
	VolatilityBps  uint32
	DurationSeconds uint64
	JitSeconds     uint64
	MaxPrice       *big.Int
	Price          *big.Int
	Now            uint64
}

// CreatePool validates parameters, computes the pool's initial reserves
// from the requested spot price, and registers the pool.
func (s *Store) CreatePool(req CreatePoolParams) (*Pool, error) {
	pairRef := req.PairRef
	if pairRef == 0 {
		pairRef = s.mostRecentPair
	}
	pair, err := s.Pair(pairRef)
	if err != nil {
		return nil, err
	}

	if req.Price == nil || req.Price.Sign() <= 0 || req.MaxPrice == nil || req.MaxPrice.Sign() <= 0 {
		return nil, errs.ErrZeroPrice
	}
	if req.FeeBps < MinFeeBps || req.FeeBps > MaxFeeBps {
		return nil, errs.ErrInvalidFee
	}
	if req.VolatilityBps < MinVolatilityBps || req.VolatilityBps > MaxVolatilityBps {
		return nil, errs.ErrInvalidVolatility
	}
	if req.DurationSeconds == 0 {
		return nil, errs.ErrInvalidDuration
	}
	if req.JitSeconds > MaxJitSeconds {
		return nil, errs.ErrInvalidJit
	}

	priorityFee := req.PriorityFeeBps
	jit := req.JitSeconds
	if req.Controller == nil {
		priorityFee = 0
		jit = DefaultJitPolicy
	} else if priorityFee < MinFeeBps || priorityFee > req.FeeBps {
		return nil, errs.ErrInvalidFee
	}

	nonce := s.poolNonceByPair[pair.ID] + 1
	s.poolNonceByPair[pair.ID] = nonce
	id := EncodePoolID(pair.ID, req.Controller != nil, nonce)

	params := Params{
		MaxPrice:        new(big.Int).Set(req.MaxPrice),
		JitSeconds:      jit,
		FeeBps:          req.FeeBps,
		PriorityFeeBps:  priorityFee,
		VolatilityBps:   req.VolatilityBps,
		DurationSeconds: req.DurationSeconds,
		CreatedAt:       req.Now,
	}

	cp := curveParams(params)
	x, err := curve.XOfPrice(req.Price, cp)
	if err != nil {
		return nil, err
	}
	y, err := curve.YOfX(x, cp, big.NewInt(0))
	if err != nil {
		return nil, err
	}

	p := &Pool{
		ID:                    id,
		PairID:                pair.ID,
		Controller:            req.Controller,
		Params:                params,
		VirtualX:              x,
		VirtualY:              y,
		Liquidity:             big.NewInt(0),
		FeeGrowthAssetGlobal:  new(uint256.Int),
		FeeGrowthQuoteGlobal:  new(uint256.Int),
		InvariantGrowthGlobal: new(uint256.Int),
		LastTimestamp:         req.Now,
	}
	s.pools[id] = p
	s.poolsByPair[pair.ID] = append(s.poolsByPair[pair.ID], id)
	return p, nil
}

func curveParams(p Params) curve.Params {
	return curve.Params{
		Strike: p.MaxPrice,
		Sigma:  curve.BpsToWad(uint64(p.VolatilityBps)),
		Tau:    curve.SecondsToWadYears(p.DurationSeconds),
	}
}

// Pool looks up a pool by id.
func (s *Store) Pool(id uint64) (*Pool, error) {
	p, ok := s.pools[id]
	if !ok {
		return nil, errs.ErrNonExistentPool
	}
	return p, nil
}

// CurveParamsAt returns the curve parameters implied by pool's expiry at
// `now`: tau collapses to zero once the pool's duration has elapsed.
func CurveParamsAt(p *Pool, now uint64) curve.Params {
	params := curveParams(p.Params)
	expiry := p.Params.CreatedAt + p.Params.DurationSeconds
	if now >= expiry {
		params.Tau = big.NewInt(0)
		return params
	}
	remaining := expiry - now
	params.Tau = curve.SecondsToWadYears(remaining)
	return params
}

// IsExpired reports whether tau has collapsed to zero for pool at now.
func IsExpired(p *Pool, now uint64) bool {
	return now >= p.Params.CreatedAt+p.Params.DurationSeconds
}

// ChangeParameters updates a controller-owned pool's mutable parameters.
// A zero value for any of priorityFeeBps/feeBps means "leave unchanged".
func (s *Store) ChangeParameters(poolID uint64, caller adapter.Address, priorityFeeBps, feeBps uint32, jitSeconds uint64) error {
	p, err := s.Pool(poolID)
	if err != nil {
		return err
	}
	if p.Controller == nil || *p.Controller != caller {
		return errs.ErrNotController
	}

	newFee := p.Params.FeeBps
	if feeBps != 0 {
		if feeBps < MinFeeBps || feeBps > MaxFeeBps {
			return errs.ErrInvalidFee
		}
		newFee = feeBps
	}
	newPriority := p.Params.PriorityFeeBps
	if priorityFeeBps != 0 {
		if priorityFeeBps < MinFeeBps || priorityFeeBps > newFee {
			return errs.ErrInvalidFee
		}
		newPriority = priorityFeeBps
	}
	newJit := p.Params.JitSeconds
	if jitSeconds != 0 {
		if jitSeconds > MaxJitSeconds {
			return errs.ErrInvalidJit
		}
		newJit = jitSeconds
	}

	p.Params.FeeBps = newFee
	p.Params.PriorityFeeBps = newPriority
	p.Params.JitSeconds = newJit
	return nil
}

// Position looks up a position by owner and pool id.
func (s *Store) Position(owner adapter.Address, poolID uint64) (*Position, bool) {
	pos, ok := s.positions[positionKey{owner: owner, poolID: poolID}]
	return pos, ok
}

func (s *Store) getOrCreatePosition(owner adapter.Address, poolID uint64) *Position {
	key := positionKey{owner: owner, poolID: poolID}
	pos, ok := s.positions[key]
	if ok {
		return pos
	}
	pos = &Position{
		Owner:               owner,
		PoolID:              poolID,
		FreeLiquidity:       big.NewInt(0),
		TokensOwedAsset:     big.NewInt(0),
		TokensOwedQuote:     big.NewInt(0),
		FeeGrowthAssetLast:  new(uint256.Int),
		FeeGrowthQuoteLast:  new(uint256.Int),
		InvariantGrowthLast: new(uint256.Int),
	}
	s.positions[key] = pos
	return pos
}

// ListPools returns every pool registered against pairID, in creation
// order. Read-only introspection; never mutates state.
func (s *Store) ListPools(pairID uint32) []*Pool {
	ids := s.poolsByPair[pairID]
	out := make([]*Pool, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.pools[id])
	}
	return out
}

// ListPositions returns every position held by owner, in undefined order.
// Read-only introspection; never mutates state.
func (s *Store) ListPositions(owner adapter.Address) []*Position {
	var out []*Position
	for k, v := range s.positions {
		if k.owner == owner {
			out = append(out, v)
		}
	}
	return out
}

// TotalLiquidity sums free_liquidity across every position keyed on pool,
// used to check the universal invariant pool.liquidity == sum(positions).
func (s *Store) TotalLiquidity(poolID uint64) *big.Int {
	total := big.NewInt(0)
	for k, v := range s.positions {
		if k.poolID == poolID {
			total.Add(total, v.FreeLiquidity)
		}
	}
	return total
}
