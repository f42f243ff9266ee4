package botdb

import (
	"context"
	"sync"
	"time"
)

// writeback coordinates the single writer goroutine of a database.
//
// schedule marks the state dirty and starts the writer if none runs. The
// writer clears dirty, encodes a fresh snapshot and writes it, looping until
// no mutation arrived during the write. idle is closed whenever no writer
// runs.
type writeback struct {
	mu      sync.Mutex
	dirty   bool
	running bool
	closed  bool
	idle    chan struct{}
	lastErr error
}

func (w *writeback) init() {
	w.idle = make(chan struct{})
	close(w.idle)
}

// start marks the state dirty and reports whether the caller must launch
// the writer.
func (w *writeback) start() (launch, accepted bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false, false
	}
	w.dirty = true
	if w.running {
		return false, true
	}
	w.running = true
	w.idle = make(chan struct{})
	return true, true
}

// next reports whether another write is due, and marks the writer stopped
// otherwise.
func (w *writeback) next() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dirty {
		w.dirty = false
		return true
	}
	w.running = false
	close(w.idle)
	return false
}

func (w *writeback) finish(err error) {
	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()
}

// wait blocks until the writer is idle and returns the last write error.
func (w *writeback) wait(ctx context.Context) error {
	w.mu.Lock()
	idle := w.idle
	w.mu.Unlock()

	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// beginClose refuses further saves. It reports false if already closed.
func (w *writeback) beginClose() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	w.closed = true
	return true
}

func (w *writeback) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// scheduleSave requests an asynchronous write of the whole database. It
// never blocks on I/O.
func (d *Database) scheduleSave() {
	launch, accepted := d.wb.start()
	if !accepted {
		return
	}
	d.observer.SaveScheduled()
	if launch {
		go d.writeLoop()
	}
}

func (d *Database) writeLoop() {
	for d.wb.next() {
		err := d.save()
		d.wb.finish(err)
	}
}

func (d *Database) save() error {
	start := time.Now()

	data, err := d.encode()
	if err == nil {
		err = d.file.Write(data)
	}

	elapsed := time.Since(start)
	d.observer.SaveCompleted(elapsed, err)
	if err != nil {
		d.logger.Error("database save failed", "error", err)
		return err
	}
	d.logger.Debug("database saved", "bytes", len(data), "duration", elapsed)
	return nil
}
