// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wad

import (
	"math/big"
	"testing"
)

func bigInt(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad bigint literal: " + s)
	}
	return n
}

func TestMulWadDirectedRounding(t *testing.T) {
	// 1.5 * 1.000000000000000001 truncated down vs rounded up differ by 1 wei.
	a := bigInt("1500000000000000000")
	b := bigInt("1000000000000000001")

	down := MulWadDown(a, b)
	up := MulWadUp(a, b)

	if down.Cmp(up) >= 0 {
		t.Fatalf("expected MulWadDown < MulWadUp, got down=%s up=%s", down, up)
	}
	if diff := new(big.Int).Sub(up, down); diff.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected a 1-wei gap between directed roundings, got %s", diff)
	}
}

func TestDivWadZeroDenominator(t *testing.T) {
	if _, err := DivWadDown(One, big.NewInt(0)); err == nil {
		t.Fatal("expected DivisionByZero error")
	}
	if _, err := DivWadUp(One, big.NewInt(0)); err == nil {
		t.Fatal("expected DivisionByZero error")
	}
}

func TestScaleRoundTrip(t *testing.T) {
	// USDC-style 6-decimal amount scaled to WAD and back.
	native := big.NewInt(1_000_000) // 1.0 at 6 decimals
	w := ScaleToWad(native, 6)
	if w.Cmp(One) != 0 {
		t.Fatalf("expected scale-to-wad of 1.0 at 6 decimals to equal WAD, got %s", w)
	}
	back := ScaleFromWadDown(w, 6)
	if back.Cmp(native) != 0 {
		t.Fatalf("round trip mismatch: got %s want %s", back, native)
	}
}

func TestLnExpRoundTrip(t *testing.T) {
	x := bigInt("2000000000000000000") // 2.0
	l, err := LnWad(x)
	if err != nil {
		t.Fatalf("LnWad: %v", err)
	}
	back := ExpWad(l)
	diff := new(big.Int).Sub(back, x)
	if diff.Abs(diff).Cmp(big.NewInt(10)) > 0 {
		t.Fatalf("ln/exp round trip drifted too far: got %s want %s", back, x)
	}
}

func TestLnUndefinedPrice(t *testing.T) {
	if _, err := LnWad(big.NewInt(0)); err == nil {
		t.Fatal("expected UndefinedPrice for ln(0)")
	}
	if _, err := LnWad(big.NewInt(-1)); err == nil {
		t.Fatal("expected UndefinedPrice for ln(negative)")
	}
}

func TestSqrtWad(t *testing.T) {
	four := bigInt("4000000000000000000")
	got, err := SqrtWad(four)
	if err != nil {
		t.Fatalf("SqrtWad: %v", err)
	}
	want := bigInt("2000000000000000000")
	diff := new(big.Int).Sub(got, want)
	if diff.Abs(diff).Cmp(big.NewInt(10)) > 0 {
		t.Fatalf("sqrt(4) mismatch: got %s want %s", got, want)
	}
}

func TestGaussianCDFSymmetry(t *testing.T) {
	// Phi(0) == 0.5
	got := GaussianCDF(big.NewInt(0))
	want := bigInt("500000000000000000")
	diff := new(big.Int).Sub(got, want)
	if diff.Abs(diff).Cmp(big.NewInt(10)) > 0 {
		t.Fatalf("Phi(0) mismatch: got %s want %s", got, want)
	}
}

func TestGaussianRoundTrip(t *testing.T) {
	p := bigInt("750000000000000000") // 0.75
	x, err := GaussianPPF(p)
	if err != nil {
		t.Fatalf("GaussianPPF: %v", err)
	}
	back := GaussianCDF(x)
	diff := new(big.Int).Sub(back, p)
	if diff.Abs(diff).Cmp(big.NewInt(1_000_000)) > 0 {
		t.Fatalf("CDF(PPF(p)) round trip drifted: got %s want %s", back, p)
	}
}

func TestGaussianPPFDomain(t *testing.T) {
	if _, err := GaussianPPF(big.NewInt(0)); err == nil {
		t.Fatal("expected UndefinedPrice at p=0")
	}
	if _, err := GaussianPPF(One); err == nil {
		t.Fatal("expected UndefinedPrice at p=WAD")
	}
}
