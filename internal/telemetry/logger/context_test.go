package logger

import (
	"context"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("test message")

	if buf.Len() == 0 {
		t.Error("Logger from context should produce output")
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext should fall back to the default logger")
	}
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	if RunIDFromContext(ctx) != "" || AccountFromContext(ctx) != "" {
		t.Fatal("empty context should carry no values")
	}

	ctx = WithRunID(ctx, "01HZX")
	ctx = WithAccount(ctx, "main")
	if got := RunIDFromContext(ctx); got != "01HZX" {
		t.Errorf("RunIDFromContext() = %q, want 01HZX", got)
	}
	if got := AccountFromContext(ctx); got != "main" {
		t.Errorf("AccountFromContext() = %q, want main", got)
	}
}

func TestL_EnrichesLogger(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	ctx := WithLogger(context.Background(), l)
	ctx = WithRunID(ctx, "run-1")
	ctx = WithAccount(ctx, "alt")
	L(ctx).Info("sweep")

	entry := decodeEntry(t, buf)
	if entry["run_id"] != "run-1" {
		t.Errorf("run_id = %v, want run-1", entry["run_id"])
	}
	if entry["account"] != "alt" {
		t.Errorf("account = %v, want alt", entry["account"])
	}
}
