package config

import (
	"os"
	"strings"
	"testing"
)

// clearEnv blanks every variable Load reads so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "OPENAI_API_KEY", "OPENAI_CHAT_COMPLETIONS_URL",
		"AI_MODEL", "OPENAI_DRYRUN", "MAX_TOKENS_OUTPUT", "USE_CONTEXT", "MAX_HISTORY",
		"SYSTEM_PROMPT", "ENABLE_DB", "DATABASE_URL", "DRYRUN_SCRIPT",
	} {
		t.Setenv(key, "")
	}
	chdir(t, t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.Port != "8080" || cfg.Env != "development" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if cfg.Model != DefaultModel || cfg.OpenAIChatCompURL != DefaultChatCompletionURL {
		t.Fatalf("unexpected upstream defaults: %+v", cfg)
	}
	if !cfg.DryRun {
		t.Fatal("dry-run should default to on")
	}
	if cfg.MaxTokensOutput != 256 || cfg.MaxHistory != 10 || !cfg.UseContext {
		t.Fatalf("unexpected context defaults: %+v", cfg)
	}
	if !cfg.EnableDB || cfg.DatabaseURL != DefaultDatabaseURL {
		t.Fatalf("unexpected storage defaults: %+v", cfg)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("expected development mode")
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_MODEL", "gpt-4o")
	t.Setenv("OPENAI_DRYRUN", "0")
	t.Setenv("USE_CONTEXT", "off")
	t.Setenv("ENABLE_DB", "no")
	t.Setenv("MAX_HISTORY", "4")
	t.Setenv("SYSTEM_PROMPT", "  be brief  ")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/chat")
	t.Setenv("ENV", "production")
	t.Setenv("DRYRUN_SCRIPT", " sleep:50,echo ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.Model != "gpt-4o" || cfg.DryRun || cfg.UseContext || cfg.EnableDB {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.MaxHistory != 4 {
		t.Fatalf("expected MAX_HISTORY=4, got %d", cfg.MaxHistory)
	}
	if cfg.SystemPrompt != "be brief" {
		t.Fatalf("expected trimmed system prompt, got %q", cfg.SystemPrompt)
	}
	if cfg.DatabaseURL != "postgres://u:p@db/chat" {
		t.Fatalf("unexpected database url %q", cfg.DatabaseURL)
	}
	if cfg.DryRunScript != "sleep:50,echo" {
		t.Fatalf("unexpected dry-run script %q", cfg.DryRunScript)
	}
	if cfg.IsDevelopment() {
		t.Fatal("production should not be development")
	}
}

func TestLoad_BoolSpellings(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes", "on"} {
		clearEnv(t)
		t.Setenv("OPENAI_DRYRUN", v)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if !cfg.DryRun {
			t.Fatalf("%q should enable dry-run", v)
		}
	}
}

func TestLoad_RejectsInvalidLimits(t *testing.T) {
	cases := map[string]string{
		"MAX_TOKENS_OUTPUT": "0",
		"MAX_HISTORY":       "-3",
	}
	for key, value := range cases {
		clearEnv(t)
		t.Setenv(key, value)
		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for %s=%s", key, value)
		}
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error should name %s: %v", key, err)
		}
	}

	clearEnv(t)
	t.Setenv("MAX_HISTORY", "ten")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "MAX_HISTORY") {
		t.Fatalf("expected MAX_HISTORY parse error, got %v", err)
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
