package phone_test

import (
	"strings"
	"testing"

	"github.com/unclebandit/bulksms-backend/internal/phone"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0712345678", "254712345678", true},
		{"+254712345678", "254712345678", true},
		{"254712345678", "254712345678", true},
		{"712345678", "254712345678", true},
		{"0712 345 678", "254712345678", true},
		{"(0712)-345-678", "254712345678", true},
		{"", "", false},
		{"abc", "", false},
		{"+-()", "", false},
		{"0", "", false},
	}

	for _, c := range cases {
		got, ok := phone.Normalize(c.in)
		if ok != c.ok {
			t.Errorf("Normalize(%q) ok = %v, want %v", c.in, ok, c.ok)
			continue
		}
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

// Any input with at least one digit must come out digits-only with the
// country code in front.
func TestNormalizeAlwaysCanonical(t *testing.T) {
	inputs := []string{
		"07-12-34", "tel: 0722000222", "  254700000001  ", "9", "00712345678",
	}
	for _, in := range inputs {
		got, ok := phone.Normalize(in)
		if !ok {
			t.Errorf("Normalize(%q) unexpectedly rejected", in)
			continue
		}
		if !strings.HasPrefix(got, phone.CountryCode) {
			t.Errorf("Normalize(%q) = %q, missing country code prefix", in, got)
		}
		for _, r := range got {
			if r < '0' || r > '9' {
				t.Errorf("Normalize(%q) = %q contains non-digit %q", in, got, r)
			}
		}
	}
}

func TestNormalizeCollapsesVariants(t *testing.T) {
	variants := []string{"0712345678", " 0712345678", "+254712345678"}
	for _, v := range variants {
		got, ok := phone.Normalize(v)
		if !ok || got != "254712345678" {
			t.Errorf("Normalize(%q) = %q, %v; want 254712345678", v, got, ok)
		}
	}
}
