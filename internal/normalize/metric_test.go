package normalize

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMetric_Suffixes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.5k", "1500"},
		{"1.5K", "1500"},
		{"2M", "2000000"},
		{"2m", "2000000"},
		{"0.5b", "500000000"},
		{"3B", "3000000000"},
		{"1500", "1500"},
		{"12,345.67", "12345.67"},
		{" 42 ", "42"},
	}

	for _, tt := range tests {
		got, ok := MetricString(tt.in)
		if !ok {
			t.Errorf("MetricString(%q): unexpectedly missing", tt.in)
			continue
		}
		want := decimal.RequireFromString(tt.want)
		if !got.Equal(want) {
			t.Errorf("MetricString(%q) = %s, want %s", tt.in, got, want)
		}
	}
}

func TestMetric_Missing(t *testing.T) {
	inputs := []any{
		nil,
		"",
		"   ",
		"n/a",
		"k",
		" k ",
		struct{}{},
	}

	for _, in := range inputs {
		if _, ok := Metric(in); ok {
			t.Errorf("Metric(%#v): expected missing", in)
		}
	}
}

func TestMetric_ZeroIsPresent(t *testing.T) {
	// Zero parses fine; treating zero as absent data is the caller's
	// policy, not the normalizer's.
	d, ok := Metric("0")
	if !ok {
		t.Fatal("Metric(\"0\"): unexpectedly missing")
	}
	if !d.IsZero() {
		t.Errorf("Metric(\"0\") = %s, want 0", d)
	}
}

func TestMetric_SubCentPrecision(t *testing.T) {
	const in = "0.000000123456789"

	d, ok := Metric(in)
	if !ok {
		t.Fatalf("Metric(%q): unexpectedly missing", in)
	}
	if d.String() != in {
		t.Errorf("round-trip lost precision: got %s, want %s", d, in)
	}
}

func TestMetric_JSONNumber(t *testing.T) {
	d, ok := Metric(json.Number("98765.4321"))
	if !ok {
		t.Fatal("Metric(json.Number): unexpectedly missing")
	}
	if d.String() != "98765.4321" {
		t.Errorf("got %s, want 98765.4321", d)
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.00"},
		{"1234.5", "1,234.50"},
		{"1000000", "1,000,000.00"},
		{"999.999", "1,000.00"},
		{"-1234.5", "-1,234.50"},
	}

	for _, tt := range tests {
		got := FormatMoney(decimal.RequireFromString(tt.in))
		if got != tt.want {
			t.Errorf("FormatMoney(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
