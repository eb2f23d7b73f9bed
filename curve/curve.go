// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package curve implements the covered-call trading function that relates
// an RMM pool's reserves to its traded price: the Gaussian-based
// conversions between independent reserve, dependent reserve and market
// price, and the scalar invariant that every swap must not decrease.
package curve

import (
	"math/big"

	"github.com/luxfi/rmm/errs"
	"github.com/luxfi/rmm/wad"
)

// SecondsPerYear is the WAD-years conversion denominator.
const SecondsPerYear = 31_536_000

var secondsPerYearWad = big.NewInt(SecondsPerYear)

// Params are the per-pool curve parameters. All fields are WAD-scaled
// except Tau which is already expressed in WAD years by the caller.
type Params struct {
	Strike *big.Int // K
	Sigma  *big.Int // sigma, WAD
	Tau    *big.Int // tau, WAD years
}

// SecondsToWadYears converts an integer second count into WAD years.
func SecondsToWadYears(seconds uint64) *big.Int {
	q, _ := wad.DivWadDown(new(big.Int).SetUint64(seconds), secondsPerYearWad)
	return q
}

// BpsToWad converts a basis-point integer (10000 == 100%) into WAD.
func BpsToWad(bps uint64) *big.Int {
	n := new(big.Int).Mul(new(big.Int).SetUint64(bps), wad.One)
	return new(big.Int).Quo(n, big.NewInt(10_000))
}

func half(x *big.Int) *big.Int {
	return new(big.Int).Quo(x, big.NewInt(2))
}

// XOfPrice computes 1 - Phi( (ln(S/K) + sigma^2/2 * tau) / (sigma*sqrt(tau)) ).
func XOfPrice(S *big.Int, p Params) (*big.Int, error) {
	if p.Tau.Sign() == 0 || p.Sigma.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if S.Sign() == 0 {
		return nil, errs.ErrUndefinedPrice
	}

	ratio, err := wad.DivWadDown(S, p.Strike)
	if err != nil {
		return nil, err
	}
	lnRatio, err := wad.LnWad(ratio)
	if err != nil {
		return nil, err
	}

	sigmaSq := wad.MulWadDown(p.Sigma, p.Sigma)
	sigmaSqTauHalf := half(wad.MulWadDown(sigmaSq, p.Tau))

	numerator := new(big.Int).Add(lnRatio, sigmaSqTauHalf)

	sqrtTau, err := wad.SqrtWad(p.Tau)
	if err != nil {
		return nil, err
	}
	denom := wad.MulWadDown(p.Sigma, sqrtTau)
	if denom.Sign() == 0 {
		return nil, errs.ErrDivisionByZero
	}

	d, err := wad.DivWadDown(numerator, denom)
	if err != nil {
		return nil, err
	}

	phi := wad.GaussianCDF(d)
	x := new(big.Int).Sub(wad.One, phi)
	return x, nil
}

// PriceOfX computes K * exp( Phi^-1(1-x)*sigma*sqrt(tau) - sigma^2*tau/2 ).
func PriceOfX(x *big.Int, p Params) (*big.Int, error) {
	if p.Tau.Sign() == 0 || p.Sigma.Sign() == 0 {
		return new(big.Int).Set(p.Strike), nil
	}
	if x.Sign() == 0 {
		return nil, errs.ErrUndefinedPrice
	}
	if x.Cmp(wad.One) == 0 {
		return big.NewInt(0), nil
	}
	if x.Cmp(wad.One) > 0 {
		return nil, errs.ErrOverflowWad
	}

	oneMinusX := new(big.Int).Sub(wad.One, x)
	ppf, err := wad.GaussianPPF(oneMinusX)
	if err != nil {
		return nil, err
	}

	sqrtTau, err := wad.SqrtWad(p.Tau)
	if err != nil {
		return nil, err
	}
	term1 := wad.MulWadDown(ppf, wad.MulWadDown(p.Sigma, sqrtTau))

	sigmaSq := wad.MulWadDown(p.Sigma, p.Sigma)
	sigmaSqTauHalf := half(wad.MulWadDown(sigmaSq, p.Tau))

	exponent := new(big.Int).Sub(term1, sigmaSqTauHalf)
	e := wad.ExpWad(exponent)
	price := wad.MulWadDown(p.Strike, e)
	return price, nil
}

// YOfX computes K*Phi(Phi^-1(1-x) - sigma*sqrt(tau)) + inv.
func YOfX(x *big.Int, p Params, inv *big.Int) (*big.Int, error) {
	oneMinusX := new(big.Int).Sub(wad.One, x)
	ppf, err := wad.GaussianPPF(oneMinusX)
	if err != nil {
		return nil, err
	}
	sqrtTau, err := wad.SqrtWad(p.Tau)
	if err != nil {
		return nil, err
	}
	arg := new(big.Int).Sub(ppf, wad.MulWadDown(p.Sigma, sqrtTau))
	phi := wad.GaussianCDF(arg)
	y := new(big.Int).Add(wad.MulWadDown(p.Strike, phi), inv)
	return y, nil
}

// XOfY computes 1 - Phi(Phi^-1((y-inv)/K) + sigma*sqrt(tau)).
func XOfY(y *big.Int, p Params, inv *big.Int) (*big.Int, error) {
	numerator := new(big.Int).Sub(y, inv)
	ratio, err := wad.DivWadDown(numerator, p.Strike)
	if err != nil {
		return nil, err
	}
	ppf, err := wad.GaussianPPF(ratio)
	if err != nil {
		return nil, err
	}
	sqrtTau, err := wad.SqrtWad(p.Tau)
	if err != nil {
		return nil, err
	}
	arg := new(big.Int).Add(ppf, wad.MulWadDown(p.Sigma, sqrtTau))
	phi := wad.GaussianCDF(arg)
	x := new(big.Int).Sub(wad.One, phi)
	return x, nil
}

// Invariant computes y - K*Phi(Phi^-1(1-x) - sigma*sqrt(tau)).
func Invariant(y, x *big.Int, p Params) (*big.Int, error) {
	oneMinusX := new(big.Int).Sub(wad.One, x)
	ppf, err := wad.GaussianPPF(oneMinusX)
	if err != nil {
		return nil, err
	}
	sqrtTau, err := wad.SqrtWad(p.Tau)
	if err != nil {
		return nil, err
	}
	arg := new(big.Int).Sub(ppf, wad.MulWadDown(p.Sigma, sqrtTau))
	phi := wad.GaussianCDF(arg)
	inv := new(big.Int).Sub(y, wad.MulWadDown(p.Strike, phi))
	return inv, nil
}

// ComputeReserves returns (y, x) for a target market price S and a given
// invariant offset.
func ComputeReserves(S *big.Int, p Params, inv *big.Int) (y, x *big.Int, err error) {
	x, err = XOfPrice(S, p)
	if err != nil {
		return nil, nil, err
	}
	y, err = YOfX(x, p, inv)
	if err != nil {
		return nil, nil, err
	}
	return y, x, nil
}
