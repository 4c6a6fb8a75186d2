package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"os"
	"strings"
	"testing"

	"github.com/stupiduntilnot/chatrelay/internal/config"
	"github.com/stupiduntilnot/chatrelay/internal/history"
)

// seedDB writes a short conversation to a fresh SQLite file and returns its path.
func seedDB(t *testing.T, texts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.db")
	store, err := history.NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	for i, text := range texts {
		role := history.RoleUser
		if i%2 == 1 {
			role = history.RoleAssistant
		}
		if _, err := store.Append(context.Background(), role, text); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestRun_Table(t *testing.T) {
	path := seedDB(t, "hello", "hi there", "how are you?")
	var out bytes.Buffer
	if err := run(context.Background(), config.Config{}, []string{"-db", path, "-n", "2", "-no-color"}, &out); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if strings.Contains(got, "hello") {
		t.Fatalf("oldest message should be outside the window:\n%s", got)
	}
	if !strings.Contains(got, "assistant") || !strings.Contains(got, "how are you?") {
		t.Fatalf("missing expected rows:\n%s", got)
	}
	if !strings.Contains(got, "showing 2 of 3 messages") {
		t.Fatalf("missing footer:\n%s", got)
	}
}

func TestRun_JSON(t *testing.T) {
	path := seedDB(t, "hello", "hi there")
	var out bytes.Buffer
	if err := run(context.Background(), config.Config{}, []string{"-db", "sqlite:///" + path, "-json"}, &out); err != nil {
		t.Fatal(err)
	}
	var msgs []history.Message
	if err := json.Unmarshal(out.Bytes(), &msgs); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out.String())
	}
	if len(msgs) != 2 || msgs[0].Text != "hello" || msgs[1].Role != history.RoleAssistant {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestRun_Clear(t *testing.T) {
	path := seedDB(t, "a", "b", "c")
	var out bytes.Buffer
	if err := run(context.Background(), config.Config{}, []string{"-db", path, "-clear"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "deleted 3 messages") {
		t.Fatalf("unexpected output: %s", out.String())
	}

	out.Reset()
	if err := run(context.Background(), config.Config{}, []string{"-db", path}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "(no messages)") {
		t.Fatalf("expected empty history, got: %s", out.String())
	}
}

func TestRun_DatabaseURLFromDotEnv(t *testing.T) {
	path := seedDB(t, "from dotenv")
	chdir(t, t.TempDir())
	if err := os.WriteFile(".env", []byte("DATABASE_URL="+path+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := run(context.Background(), cfg, []string{"-no-color"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "from dotenv") {
		t.Fatalf("expected message from .env database, got:\n%s", out.String())
	}
}

func TestParseFlags_RejectsBadLimit(t *testing.T) {
	if _, err := parseFlags([]string{"-n", "0"}, config.DefaultDatabaseURL); err == nil {
		t.Fatal("expected error for -n 0")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo world", 5); got != "héllo..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncate("short", 0); got != "short" {
		t.Fatalf("width 0 should not truncate, got %q", got)
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
