package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.StoreBackend != StoreSQLite {
		t.Fatalf("expected sqlite backend, got %q", cfg.StoreBackend)
	}
	if cfg.PersonalityRounds != 3 {
		t.Fatalf("expected 3 personality rounds, got %d", cfg.PersonalityRounds)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("expected 24h session ttl, got %v", cfg.SessionTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "JSONFile")
	t.Setenv("PERSONALITY_ROUNDS", "5")
	t.Setenv("LLM_TIMEOUT", "2s")
	t.Setenv("DEFAULT_LLM", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreBackend != StoreJSONFile {
		t.Fatalf("expected jsonfile backend, got %q", cfg.StoreBackend)
	}
	if cfg.PersonalityRounds != 5 {
		t.Fatalf("expected 5 rounds, got %d", cfg.PersonalityRounds)
	}
	if cfg.LLMTimeout != 2*time.Second {
		t.Fatalf("expected 2s timeout, got %v", cfg.LLMTimeout)
	}
	if cfg.LLMAPIKey() != "sk-test" {
		t.Fatalf("expected openai key, got %q", cfg.LLMAPIKey())
	}
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("SAVE_RETRIES", "lots")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"STORE_BACKEND":      "mongo",
		"PERSONALITY_ROUNDS": "0",
		"SAVE_RETRIES":       "-1",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%s to be rejected", key, value)
			}
		})
	}
}
