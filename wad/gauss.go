// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wad

import (
	"math"
	"math/big"

	"github.com/ALTree/bigfloat"

	"github.com/luxfi/rmm/errs"
)

// precisionBits is the internal big.Float mantissa width used for
// ln/exp/sqrt/Gaussian CDF-PPF evaluation. 256 bits comfortably bounds the
// 1-ULP-at-WAD-scale determinism the curve library requires.
const precisionBits = 256

func newFloat() *big.Float {
	return new(big.Float).SetPrec(precisionBits)
}

var (
	sqrt2Float = func() *big.Float {
		f := newFloat()
		f.Sqrt(newFloat().SetInt64(2))
		return f
	}()
	halfFloat = newFloat().SetFloat64(0.5)
	oneFloat  = newFloat().SetInt64(1)
)

func toFloat(x *big.Int) *big.Float {
	f := newFloat().SetInt(x)
	return f.Quo(f, newFloat().SetInt(One))
}

func roundToInt(f *big.Float) *big.Int {
	adjusted := newFloat()
	if f.Sign() >= 0 {
		adjusted.Add(f, halfFloat)
	} else {
		adjusted.Sub(f, halfFloat)
	}
	i, _ := adjusted.Int(nil)
	return i
}

func toWad(f *big.Float) *big.Int {
	scaled := newFloat().Mul(f, newFloat().SetInt(One))
	return roundToInt(scaled)
}

// LnWad computes the natural logarithm of a WAD value. Domain: x > 0.
func LnWad(x *big.Int) (*big.Int, error) {
	if x.Sign() <= 0 {
		return nil, errs.ErrUndefinedPrice
	}
	lf := bigfloat.Log(toFloat(x))
	return toWad(lf), nil
}

// ExpWad computes e^x for a WAD-scaled exponent, returning a WAD result.
func ExpWad(x *big.Int) *big.Int {
	ef := bigfloat.Exp(toFloat(x))
	return toWad(ef)
}

// SqrtWad computes the square root of a non-negative WAD value.
func SqrtWad(x *big.Int) (*big.Int, error) {
	if x.Sign() < 0 {
		return nil, errs.ErrOverflowWad
	}
	sf := newFloat().Sqrt(toFloat(x))
	return toWad(sf), nil
}

func erfBig(x *big.Float) *big.Float {
	return bigfloat.Erf(x)
}

func cdfFloat(x *big.Float) *big.Float {
	arg := newFloat().Quo(x, sqrt2Float)
	e := erfBig(arg)
	sum := newFloat().Add(oneFloat, e)
	return sum.Mul(sum, halfFloat)
}

// GaussianCDF computes the standard normal CDF Phi(x) for a WAD-scaled x,
// returning a WAD-scaled probability in [0, WAD].
func GaussianCDF(x *big.Int) *big.Int {
	return toWad(cdfFloat(toFloat(x)))
}

// pdfFloat is the standard normal density, used as the Newton-Raphson
// derivative when inverting the CDF.
func pdfFloat(x *big.Float) *big.Float {
	xf, _ := x.Float64()
	negHalfXSq := newFloat().SetFloat64(-0.5 * xf * xf)
	e := bigfloat.Exp(negHalfXSq)
	invSqrt2Pi := newFloat().SetFloat64(1 / math.Sqrt(2*math.Pi))
	return e.Mul(e, invSqrt2Pi)
}

// GaussianPPF computes the inverse standard normal CDF (the quantile
// function) for a WAD-scaled probability strictly between 0 and WAD.
//
// The initial seed comes from the stdlib's float64 math.Erfinv; the result
// is then refined with big.Float Newton-Raphson iterations against the
// arbitrary-precision CDF above, to reach the determinism the curve library
// needs without depending on a library-provided arbitrary-precision erfinv.
func GaussianPPF(p *big.Int) (*big.Int, error) {
	if p.Sign() <= 0 || p.Cmp(One) >= 0 {
		return nil, errs.ErrUndefinedPrice
	}

	p64 := new(big.Float).SetPrec(64).SetInt(p)
	p64.Quo(p64, new(big.Float).SetPrec(64).SetInt(One))
	pf64, _ := p64.Float64()

	seed := math.Sqrt2 * math.Erfinv(2*pf64-1)
	x := newFloat().SetFloat64(seed)

	pf := toFloat(p)
	for i := 0; i < 60; i++ {
		cdf := cdfFloat(x)
		diff := newFloat().Sub(cdf, pf)
		density := pdfFloat(x)
		if density.Sign() == 0 {
			break
		}
		delta := newFloat().Quo(diff, density)
		x.Sub(x, delta)
		if absFloat(delta).Cmp(epsilon) < 0 {
			break
		}
	}

	return toWad(x), nil
}

var epsilon = func() *big.Float {
	f := newFloat().SetInt64(1)
	scale := newFloat().SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil))
	return f.Quo(f, scale)
}()

func absFloat(f *big.Float) *big.Float {
	if f.Sign() < 0 {
		return newFloat().Neg(f)
	}
	return newFloat().Set(f)
}
