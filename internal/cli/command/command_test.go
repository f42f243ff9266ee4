package command

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/botvault/internal/core/authenticator"
	"github.com/yndnr/botvault/internal/core/domain"
	"github.com/yndnr/botvault/internal/storage/botdb"
)

// runCLI runs the app against db and returns stdout.
func runCLI(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	full := append([]string{"botvault-cli", "--db", db}, args...)
	err := app.Run(full)
	return stdout.String(), err
}

func mustRun(t *testing.T, db string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, db, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func loadDB(t *testing.T, path string) *botdb.Database {
	t.Helper()
	db, err := botdb.CreateOrLoad(context.Background(), path)
	if err != nil {
		t.Fatalf("CreateOrLoad: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestQueueCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.db")

	out := mustRun(t, path, "queue", "add", "-p", "high", "AAAAA-AAAAA-AAAAA=Portal 2", "BBBBB-BBBBB-BBBBB=Half-Life")
	if !strings.Contains(out, "queued 2 key(s) at high priority") {
		t.Fatalf("add output = %q", out)
	}
	mustRun(t, path, "queue", "add", "CCCCC-CCCCC-CCCCC=A=B")

	out = mustRun(t, path, "queue", "list")
	want := "PRIORITY  KEY                NAME\n" +
		"high      AAAAA-*****-*****  Portal 2\n" +
		"high      BBBBB-*****-*****  Half-Life\n" +
		"normal    CCCCC-*****-*****  A=B\n"
	if out != want {
		t.Fatalf("list output =\n%s\nwant\n%s", out, want)
	}

	out = mustRun(t, path, "-o", "json", "queue", "list", "--reveal", "-p", "normal")
	var entries []QueueEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("json output %q: %v", out, err)
	}
	if len(entries) != 1 || entries[0].Key != "CCCCC-CCCCC-CCCCC" || entries[0].Name != "A=B" {
		t.Fatalf("entries = %+v", entries)
	}

	out = mustRun(t, path, "queue", "rm", "aaaaa-aaaaa-aaaaa", "ZZZZZ-ZZZZZ-ZZZZZ")
	if !strings.Contains(out, "removed 1 key(s)") {
		t.Fatalf("remove output = %q", out)
	}

	out = mustRun(t, path, "-o", "json", "queue", "clear")
	var ch Change
	if err := json.Unmarshal([]byte(out), &ch); err != nil {
		t.Fatal(err)
	}
	if ch.Changed != 2 {
		t.Fatalf("clear changed = %d, want 2", ch.Changed)
	}
	if db := loadDB(t, path); db.RedeemCount() != 0 {
		t.Fatalf("RedeemCount() = %d after clear", db.RedeemCount())
	}
}

func TestQueueAdd_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.db")

	tests := [][]string{
		{"queue", "add", "no-separator"},
		{"queue", "add", "NOT-A-KEY=Game"},
		{"queue", "add", "-p", "urgent", "AAAAA-AAAAA-AAAAA=Game"},
		{"queue", "add"},
	}
	for _, args := range tests {
		if _, err := runCLI(t, path, args...); err == nil {
			t.Fatalf("%v: error = nil, want error", args)
		}
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("rejected adds wrote the database: %v", err)
	}
}

func TestBlacklistCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.db")

	mustRun(t, path, "blacklist", "add", "730", "440", "730")
	mustRun(t, path, "blacklist", "add", "-k", "trading", "76561198000000001")

	out := mustRun(t, path, "--no-headers", "blacklist", "list")
	if out != "440\n730\n" {
		t.Fatalf("farming list = %q", out)
	}
	out = mustRun(t, path, "-o", "yaml", "blacklist", "list", "--kind", "trading")
	if out != "- \"76561198000000001\"\n" {
		t.Fatalf("trading list = %q", out)
	}

	out = mustRun(t, path, "blacklist", "rm", "440")
	if !strings.Contains(out, "farming: 1 id(s) changed") {
		t.Fatalf("remove output = %q", out)
	}

	if _, err := runCLI(t, path, "blacklist", "add", "-k", "farming", "99999999999"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("overflowing app id error = %v", err)
	}
	if _, err := runCLI(t, path, "blacklist", "list", "-k", "nope"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("unknown kind error = %v", err)
	}

	db := loadDB(t, path)
	if got := db.FarmingBlacklistAppIDs().Items(); len(got) != 1 || got[0] != 730 {
		t.Fatalf("farming ids = %v, want [730]", got)
	}
}

func TestStorageCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.db")

	mustRun(t, path, "storage", "set", "plugin.settings", `{"enabled":true}`)
	if _, err := runCLI(t, path, "storage", "set", "k", "{broken"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("invalid json error = %v", err)
	}
	if _, err := runCLI(t, path, "storage", "set", "GamesToRedeemInBackgroundHigh", `{}`); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatal("schema key accepted")
	}

	out := mustRun(t, path, "storage", "list")
	if !strings.Contains(out, `plugin.settings  {"enabled":true}`) {
		t.Fatalf("list output = %q", out)
	}
	out = mustRun(t, path, "-o", "yaml", "storage", "list")
	if out != "plugin.settings:\n  enabled: true\n" {
		t.Fatalf("yaml list = %q", out)
	}

	out = mustRun(t, path, "storage", "delete", "plugin.settings")
	if !strings.Contains(out, "deleted 1 key(s)") {
		t.Fatalf("delete output = %q", out)
	}
	if got := loadDB(t, path).JSONStorage(); len(got) != 0 {
		t.Fatalf("JSONStorage() = %v after delete", got)
	}
}

func TestShowValidateSweep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.db")

	if _, err := runCLI(t, path, "validate"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("validate missing file error = %v", err)
	}

	mustRun(t, path, "queue", "add", "-p", "low", "AAAAA-AAAAA-AAAAA=Game")
	out := mustRun(t, path, "validate")
	if !strings.HasSuffix(out, ": ok\n") {
		t.Fatalf("validate output = %q", out)
	}

	out = mustRun(t, path, "-o", "json", "show")
	var s Summary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("show json %q: %v", out, err)
	}
	if s.RedeemQueue["low"] != 1 || s.HasAccessToken || s.Path != path {
		t.Fatalf("summary = %+v", s)
	}

	out = mustRun(t, path, "show")
	if !strings.Contains(out, "redeem_queue.low") {
		t.Fatalf("show table = %q", out)
	}

	out = mustRun(t, path, "sweep")
	if out != "removed 0 expired entries\n" {
		t.Fatalf("sweep output = %q", out)
	}

	if err := os.WriteFile(path, []byte(`{"GamesToRedeemInBackgroundLow":{"bad":"x"}}`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, path, "validate"); !errors.Is(err, domain.ErrDatabaseInvalid) {
		t.Fatalf("validate invalid file error = %v, want %v", err, domain.ErrDatabaseInvalid)
	}
}

func TestAuthCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.db")

	if _, err := runCLI(t, path, "auth", "code"); !errors.Is(err, errNoAuthenticator) {
		t.Fatalf("auth code without authenticator error = %v", err)
	}

	db, err := botdb.CreateOrLoad(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	shared := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 20))
	identity := base64.StdEncoding.EncodeToString([]byte("identity"))
	db.SetMobileAuthenticator(authenticator.New(shared, identity, "android:1"))
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	out := mustRun(t, path, "auth", "code")
	code := strings.TrimSpace(out)
	if len(code) != 5 {
		t.Fatalf("code = %q, want 5 characters", code)
	}

	out = mustRun(t, path, "-o", "json", "auth", "code")
	var res AuthCode
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Code) != 5 || res.ValidFrom.IsZero() {
		t.Fatalf("auth code = %+v", res)
	}
}

func TestSealedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.db")

	mustRun(t, path, "--passphrase", "s3cret", "blacklist", "add", "10")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(raw, []byte("BVSEAL01")) {
		t.Fatalf("database header = %q, want sealed", raw[:8])
	}

	if _, err := runCLI(t, path, "blacklist", "list"); err == nil {
		t.Fatal("sealed database opened without passphrase")
	}
	t.Setenv("BOTVAULT_PASSPHRASE", "s3cret")
	if out := mustRun(t, path, "--no-headers", "blacklist", "list"); out != "10\n" {
		t.Fatalf("list = %q", out)
	}
}

func TestOutputFlagInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.db")
	if _, err := runCLI(t, path, "-o", "xml", "show"); err == nil {
		t.Fatal("unknown output format accepted")
	}
}
