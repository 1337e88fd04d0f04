package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"0.001", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:       "0.00",
		5:       "0.05",
		123456:  "1234.56",
		-1230:   "-12.30",
		100000:  "1000.00",
	}
	for cents, want := range cases {
		if got := Cents(cents).String(); got != want {
			t.Fatalf("Cents(%d).String() = %q, want %q", cents, got, want)
		}
	}
	if got := Cents(80000).Dollars(); got != "$800.00" {
		t.Fatalf("Dollars() = %q", got)
	}
	if got := Cents(-150).Dollars(); got != "-$1.50" {
		t.Fatalf("Dollars() = %q", got)
	}
}

func TestMoneyJSON(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a": 12.5, "b": "7,25"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A.Cents != 1250 || v.B.Cents != 725 {
		t.Fatalf("got a=%d b=%d", v.A.Cents, v.B.Cents)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":12.50,"b":7.25}` {
		t.Fatalf("marshal = %s", out)
	}
	if err := json.Unmarshal([]byte(`{"a": "ten"}`), &v); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPercentage(t *testing.T) {
	if got := Percentage(Cents(40000), Cents(60000)).String(); got != "66.67" {
		t.Fatalf("Percentage = %s", got)
	}
	if got := Percentage(Cents(100), Cents(0)); !got.IsZero() {
		t.Fatalf("zero limit should yield 0, got %s", got)
	}
}
