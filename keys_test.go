package sqlcache

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	valid := []string{
		"a",
		"user:42:profile",
		"spaces are allowed",
		"unicode éü",
		strings.Repeat("k", MaxKeyLength),
	}
	for _, key := range valid {
		if err := validateKey(key); err != nil {
			t.Errorf("validateKey(%q) = %v, want nil", key, err)
		}
	}

	invalid := []string{
		"",
		strings.Repeat("k", MaxKeyLength+1),
		"tab\there",
		"new\nline",
		"nul\x00byte",
		"del\x7f",
	}
	for _, key := range invalid {
		if err := validateKey(key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("validateKey(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestDedupe(t *testing.T) {
	cases := []struct {
		in, want []string
	}{
		{nil, nil},
		{[]string{"a"}, []string{"a"}},
		{[]string{"a", "b", "a", "c", "b"}, []string{"a", "b", "c"}},
		{[]string{"x", "x", "x"}, []string{"x"}},
	}
	for _, tc := range cases {
		got := dedupe(tc.in)
		if len(got) != len(tc.want) {
			t.Errorf("dedupe(%v) = %v, want %v", tc.in, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("dedupe(%v) = %v, want %v", tc.in, got, tc.want)
				break
			}
		}
	}
}
