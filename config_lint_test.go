package goSession

import (
	"testing"
	"time"
)

func containsCode(codes []string, want string) bool {
	for _, c := range codes {
		if c == want {
			return true
		}
	}
	return false
}

func TestLint_StrictPresetOverHTTPS(t *testing.T) {
	cfg := StrictConfig("https://api.example.com")
	cfg.Token.VerifyMethod = "hs256"
	cfg.Token.VerifyKey = []byte("0123456789abcdef0123456789abcdef")

	if ws := cfg.Lint(); len(ws) != 0 {
		t.Fatalf("expected no warnings, got %v", ws.Codes())
	}
}

func TestLint_InsecureRemoteBase(t *testing.T) {
	cfg := testConfig()
	cfg.API.BaseURL = "http://votes.example.com"
	if !containsCode(cfg.Lint().Codes(), "api_base_insecure") {
		t.Error("expected api_base_insecure warning")
	}

	cfg.API.BaseURL = "http://localhost:3000"
	if containsCode(cfg.Lint().Codes(), "api_base_insecure") {
		t.Error("loopback http must not warn")
	}
}

func TestLint_TimeoutUnset(t *testing.T) {
	cfg := testConfig()
	if !containsCode(cfg.Lint().Codes(), "api_timeout_unset") {
		t.Error("expected api_timeout_unset warning")
	}
	cfg.API.Timeout = 5 * time.Second
	if containsCode(cfg.Lint().Codes(), "api_timeout_unset") {
		t.Error("unexpected api_timeout_unset warning")
	}
}

func TestLint_ExpiryFromUnverifiedClaims(t *testing.T) {
	cfg := testConfig()
	cfg.Session.DiscardExpiredTokens = true
	if !containsCode(cfg.Lint().Codes(), "expiry_from_unverified_claims") {
		t.Error("expected expiry_from_unverified_claims warning")
	}
}

func TestLint_BlockingEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Events.Enabled = true
	cfg.Events.DropIfFull = false
	if !containsCode(cfg.Lint().Codes(), "events_block_operations") {
		t.Error("expected events_block_operations warning")
	}
}
