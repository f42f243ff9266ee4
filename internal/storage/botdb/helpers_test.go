package botdb

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

type countingObserver struct {
	scheduled atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	swept     atomic.Int64
}

func (o *countingObserver) SaveScheduled() { o.scheduled.Add(1) }

func (o *countingObserver) SaveCompleted(_ time.Duration, err error) {
	o.completed.Add(1)
	if err != nil {
		o.failed.Add(1)
	}
}

func (o *countingObserver) Swept(n int) { o.swept.Add(int64(n)) }

func openTestDB(t *testing.T, path string, opts ...Option) (*Database, *countingObserver) {
	t.Helper()
	obs := &countingObserver{}
	db, err := CreateOrLoad(context.Background(), path, append(opts, WithObserver(obs))...)
	if err != nil {
		t.Fatalf("CreateOrLoad(%s): %v", path, err)
	}
	t.Cleanup(func() { db.Close() })
	return db, obs
}

func newTestDB(t *testing.T) (*Database, *countingObserver) {
	t.Helper()
	return openTestDB(t, filepath.Join(t.TempDir(), "bot.db"))
}

func flush(t *testing.T, db *Database) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
