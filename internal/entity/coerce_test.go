package entity

import (
	"encoding/json"
	"testing"
)

func TestFloat_Coercion(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want float64
	}{
		{"nil", nil, 0},
		{"float", 1.5, 1.5},
		{"numeric string", "1000000000000000000", 1e18},
		{"garbage string", "not-a-number", 0},
		{"json number", json.Number("42.5"), 42.5},
		{"bad json number", json.Number("x"), 0},
	}
	for _, tc := range cases {
		if got := Float(tc.in); got != tc.want {
			t.Errorf("%s: Float(%v) = %v, want %v", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestInt_BigIntegerString(t *testing.T) {
	// Raw cap fields arrive as decimal strings
	if got := Int("115792089237316195"); got != 115792089237316195 {
		t.Errorf("Int = %d", got)
	}
	if got := Int(nil); got != 0 {
		t.Errorf("Int(nil) = %d, want 0", got)
	}
	// Scientific-notation string falls back to float parse
	if got := Int("1e3"); got != 1000 {
		t.Errorf("Int(1e3) = %d, want 1000", got)
	}
}

func TestFloatPtr_PreservesAbsence(t *testing.T) {
	if FloatPtr(nil) != nil {
		t.Error("FloatPtr(nil) should be nil")
	}
	p := FloatPtr("2.5")
	if p == nil || *p != 2.5 {
		t.Errorf("FloatPtr(2.5) = %v", p)
	}
}

func TestNewVaultKey_CaseInsensitive(t *testing.T) {
	a := NewVaultKey("0xABCDef123", 1)
	b := NewVaultKey(" 0xabcdef123 ", 1)
	if a != b {
		t.Errorf("keys differ: %v vs %v", a, b)
	}
	c := NewVaultKey("0xabcdef123", 8453)
	if a == c {
		t.Error("different chains must produce different keys")
	}
}

func TestToxicFilter(t *testing.T) {
	f := NewToxicFilter(
		[]string{"xUSD", "deUSD", "sdeUSD"},
		[]string{"sfrxUSD", "fxUSD"},
	)

	if !f.IsToxic("xUSD") || !f.IsToxic("XUSD") || !f.IsToxic("xusd") {
		t.Error("toxic match must be case-insensitive")
	}
	if f.IsToxic("sfrxUSD") || f.IsToxic("SFRXUSD") {
		t.Error("false positives must be excluded case-insensitively")
	}
	if f.IsToxic("USDC") || f.IsToxic("") {
		t.Error("unrelated or empty symbols must not match")
	}
}
