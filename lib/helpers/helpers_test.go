package helpers

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"610", "610.00"},
		{"1085.5", "1,085.50"},
		{"0.42", "0.42"},
	}
	for _, tc := range cases {
		got := FormatPrice(decimal.RequireFromString(tc.in))
		if got != tc.want {
			t.Errorf("FormatPrice(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatClose(t *testing.T) {
	if got := FormatClose(620); got != "620.00" {
		t.Errorf("FormatClose(620) = %q, want 620.00", got)
	}
	if got := FormatClose(12345.678); got != "12,345.68" {
		t.Errorf("FormatClose(12345.678) = %q, want 12,345.68", got)
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(d); got != "03/07" {
		t.Errorf("FormatDate = %q, want 03/07", got)
	}
}
