package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/botvault/internal/core/domain"
)

const redeemScript = `#!/bin/sh
case "$BOTVAULT_REDEEM_KEY" in
  AAAAA-*) [ "$BOTVAULT_ACCOUNT" = main ] && exit 0; exit 1 ;;
  BBBBB-*) echo "key already used"; exit 2 ;;
  *) echo "service unavailable"; exit 1 ;;
esac
`

func writeScript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "redeem.sh")
	if err := os.WriteFile(path, []byte(redeemScript), 0700); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecRedeemer(t *testing.T) {
	r, err := NewExecRedeemer(writeScript(t))
	if err != nil {
		t.Fatalf("NewExecRedeemer: %v", err)
	}
	ctx := context.Background()

	if err := r.Redeem(ctx, "main", domain.RedeemItem{Key: "AAAAA-AAAAA-AAAAA", Name: "A"}); err != nil {
		t.Fatalf("Redeem(success) error = %v", err)
	}

	err = r.Redeem(ctx, "main", domain.RedeemItem{Key: "BBBBB-BBBBB-BBBBB", Name: "B"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("Redeem(rejected) error = %v, want %v", err, ErrRejected)
	}
	if !strings.Contains(err.Error(), "key already used") {
		t.Fatalf("error %q does not carry command output", err)
	}

	err = r.Redeem(ctx, "main", domain.RedeemItem{Key: "CCCCC-CCCCC-CCCCC", Name: "C"})
	if err == nil || errors.Is(err, ErrRejected) {
		t.Fatalf("Redeem(transient) error = %v, want a retryable error", err)
	}

	if err := r.Redeem(ctx, "alt", domain.RedeemItem{Key: "AAAAA-AAAAA-AAAAA", Name: "A"}); err == nil {
		t.Fatal("account was not passed to the command")
	}
}

func TestNewExecRedeemer_Empty(t *testing.T) {
	_, err := NewExecRedeemer("   ")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("NewExecRedeemer() error = %v, want %v", err, domain.ErrInvalidArgument)
	}
}
