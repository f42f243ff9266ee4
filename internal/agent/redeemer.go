package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/yndnr/botvault/internal/core/domain"
)

// ErrRejected marks a redemption the remote side refused for good, such as
// an already used or invalid key. The key is dropped from the queue.
var ErrRejected = errors.New("agent: redemption rejected")

// Redeemer redeems one product key for an account. It returns nil when the
// key was redeemed, an error wrapping ErrRejected when retrying is pointless,
// and any other error when the attempt should be retried later.
type Redeemer interface {
	Redeem(ctx context.Context, account string, item domain.RedeemItem) error
}

// RedeemerFunc adapts a function to Redeemer.
type RedeemerFunc func(ctx context.Context, account string, item domain.RedeemItem) error

func (f RedeemerFunc) Redeem(ctx context.Context, account string, item domain.RedeemItem) error {
	return f(ctx, account, item)
}

// ExitRejected is the exit status an ExecRedeemer command uses to reject a
// key permanently.
const ExitRejected = 2

// ExecRedeemer runs an external command for every key. The key, its name and
// the account are passed in BOTVAULT_REDEEM_KEY, BOTVAULT_REDEEM_NAME and
// BOTVAULT_ACCOUNT.
type ExecRedeemer struct {
	argv []string
}

// NewExecRedeemer splits command on whitespace.
func NewExecRedeemer(command string) (*ExecRedeemer, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty redeem command", domain.ErrInvalidArgument)
	}
	return &ExecRedeemer{argv: argv}, nil
}

func (e *ExecRedeemer) Redeem(ctx context.Context, account string, item domain.RedeemItem) error {
	cmd := exec.CommandContext(ctx, e.argv[0], e.argv[1:]...)
	cmd.Env = append(os.Environ(),
		"BOTVAULT_REDEEM_KEY="+item.Key,
		"BOTVAULT_REDEEM_NAME="+item.Name,
		"BOTVAULT_ACCOUNT="+account,
	)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	msg := strings.TrimSpace(string(out))
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == ExitRejected {
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return fmt.Errorf("redeem command: %w: %s", err, msg)
}
