package token

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		tok := Generate()
		if len(tok) != 2*TokenBytes {
			t.Fatalf("len(Generate()) = %d, want %d", len(tok), 2*TokenBytes)
		}
		if _, err := hex.DecodeString(tok); err != nil {
			t.Fatalf("Generate() = %q is not hex: %v", tok, err)
		}
		if seen[tok] {
			t.Fatalf("Generate() repeated %q", tok)
		}
		seen[tok] = true
	}
}

func TestGenerateAPIKey(t *testing.T) {
	key := GenerateAPIKey()
	if !strings.HasPrefix(key, KeyPrefix) {
		t.Errorf("GenerateAPIKey() = %q, want prefix %q", key, KeyPrefix)
	}
	if !IsGeneratedKey(key) {
		t.Errorf("IsGeneratedKey(%q) = false", key)
	}
}

func TestIsGeneratedKey(t *testing.T) {
	valid := KeyPrefix + strings.Repeat("ab", TokenBytes)
	tests := []struct {
		key  string
		want bool
	}{
		{valid, true},
		{strings.Repeat("ab", TokenBytes), false},
		{KeyPrefix + "abc", false},
		{KeyPrefix + strings.Repeat("AB", TokenBytes), false},
		{KeyPrefix + strings.Repeat("zz", TokenBytes), false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsGeneratedKey(tt.key); got != tt.want {
			t.Errorf("IsGeneratedKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
