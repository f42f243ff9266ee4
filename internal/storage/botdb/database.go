package botdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/yndnr/botvault/internal/core/authenticator"
	"github.com/yndnr/botvault/internal/core/domain"
	"github.com/yndnr/botvault/internal/storage/jsonfile"
)

// Database is the durable state of one account.
type Database struct {
	file     *jsonfile.File
	logger   *slog.Logger
	observer Observer

	mu                            sync.RWMutex
	accessToken                   string
	refreshToken                  string
	steamGuardData                string
	cachedParentalCode            string
	tradeRestrictionsAcknowledged bool
	extraStorePackagesRefreshedAt time.Time
	mobileAuthenticator           *authenticator.Authenticator

	extraStorePackages            *IDSet[uint32]
	farmingBlacklistAppIDs        *IDSet[uint32]
	farmingPriorityQueueAppIDs    *IDSet[uint32]
	farmingRiskyPrioritizedAppIDs *IDSet[uint32]
	matchActivelyBlacklistAppIDs  *IDSet[uint32]
	tradingBlacklistSteamIDs      *IDSet[uint64]
	farmingRiskyIgnoredAppIDs     *ExpiryMap

	queue redeemQueue
	wb    writeback
}

// CreateOrLoad opens the database stored at path. A missing file yields a
// fresh database without touching disk. An empty, unparsable or invalid
// file yields an error and no database.
func CreateOrLoad(ctx context.Context, path string, opts ...Option) (*Database, error) {
	if path == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("empty database path")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	logger := o.logger.With("path", path)
	file := jsonfile.New(path, append(o.fileOpts, jsonfile.WithReservedKeys(schemaKeys...))...)

	data, err := file.Read()
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("database file not found, starting fresh")
		return newDatabase(file, logger, o.observer, nil), nil
	}
	if err != nil {
		file.Close()
		logger.Error("read database failed", "error", err)
		return nil, fmt.Errorf("botdb: read %s: %w", path, err)
	}

	doc, err := loadDocument(data)
	if err != nil {
		file.Close()
		logger.Error("load database failed", "error", err)
		return nil, err
	}

	file.Adopt(doc.extra)
	db := newDatabase(file, logger, o.observer, doc)
	logger.Debug("database loaded",
		"redeem_queued", db.RedeemCount(),
		"extra_keys", len(doc.extra),
	)
	return db, nil
}

func loadDocument(data []byte) (*document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, domain.ErrDatabaseEmpty
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, domain.ErrDatabaseCorrupt.WithCause(err)
	}
	if err := doc.validate(); err != nil {
		return nil, domain.ErrDatabaseInvalid.WithDetails(err.Error()).WithCause(err)
	}
	return doc, nil
}

func newDatabase(file *jsonfile.File, logger *slog.Logger, obs Observer, doc *document) *Database {
	d := &Database{
		file:     file,
		logger:   logger,
		observer: obs,

		extraStorePackages:            newIDSet[uint32](),
		farmingBlacklistAppIDs:        newIDSet[uint32](),
		farmingPriorityQueueAppIDs:    newIDSet[uint32](),
		farmingRiskyPrioritizedAppIDs: newIDSet[uint32](),
		matchActivelyBlacklistAppIDs:  newIDSet[uint32](),
		tradingBlacklistSteamIDs:      newIDSet[uint64](),
		farmingRiskyIgnoredAppIDs:     newExpiryMap(),
	}
	d.queue.init()
	d.wb.init()

	if doc != nil {
		d.apply(doc)
	}
	d.subscribe(d.scheduleSave)
	file.OnChange(d.scheduleSave)
	return d
}

// apply copies a decoded document into a database that is not yet shared.
func (d *Database) apply(doc *document) {
	d.accessToken = doc.accessToken
	d.refreshToken = doc.refreshToken
	d.steamGuardData = doc.steamGuardData
	d.cachedParentalCode = doc.cachedParentalCode
	d.tradeRestrictionsAcknowledged = doc.tradeRestrictionsAcknowledged
	d.extraStorePackagesRefreshedAt = doc.extraStorePackagesRefreshedAt
	d.mobileAuthenticator = doc.mobileAuthenticator
	if d.mobileAuthenticator != nil {
		d.mobileAuthenticator.Bind(d.scheduleSave)
	}

	d.extraStorePackages.load(doc.extraStorePackages)
	d.farmingBlacklistAppIDs.load(doc.farmingBlacklistAppIDs)
	d.farmingPriorityQueueAppIDs.load(doc.farmingPriorityQueueAppIDs)
	d.farmingRiskyPrioritizedAppIDs.load(doc.farmingRiskyPrioritizedAppIDs)
	d.matchActivelyBlacklistAppIDs.load(doc.matchActivelyBlacklistAppIDs)
	d.tradingBlacklistSteamIDs.load(doc.tradingBlacklistSteamIDs)
	d.farmingRiskyIgnoredAppIDs.load(doc.farmingRiskyIgnoredAppIDs)

	for _, p := range domain.Priorities {
		t := d.queue.tier(p)
		for _, item := range doc.redeem[p] {
			t.upsert(item)
		}
	}
}

// subscribe attaches fn to every set and the expiry map. nil detaches.
func (d *Database) subscribe(fn func()) {
	d.extraStorePackages.subscribe(fn)
	d.farmingBlacklistAppIDs.subscribe(fn)
	d.farmingPriorityQueueAppIDs.subscribe(fn)
	d.farmingRiskyPrioritizedAppIDs.subscribe(fn)
	d.matchActivelyBlacklistAppIDs.subscribe(fn)
	d.tradingBlacklistSteamIDs.subscribe(fn)
	d.farmingRiskyIgnoredAppIDs.subscribe(fn)
}

// Path returns the bound file path.
func (d *Database) Path() string {
	return d.file.Path()
}

// Close detaches every change subscription, disposes the mobile
// authenticator, waits for pending writes and releases the file. A second
// Close is a no-op.
func (d *Database) Close() error {
	if !d.wb.beginClose() {
		return nil
	}

	d.subscribe(nil)
	d.file.OnChange(nil)

	d.mu.Lock()
	auth := d.mobileAuthenticator
	d.mu.Unlock()
	if auth != nil {
		auth.Close()
	}

	err := d.wb.wait(context.Background())
	if cerr := d.file.Close(); err == nil {
		err = cerr
	}
	d.logger.Debug("database closed")
	return err
}

// Closed reports whether Close has been called.
func (d *Database) Closed() bool {
	return d.wb.isClosed()
}

// Flush waits until every save scheduled before the call has reached disk
// and returns the error of the last write, if any.
func (d *Database) Flush(ctx context.Context) error {
	return d.wb.wait(ctx)
}

// PerformMaintenance removes risky-ignored entries whose expiry is at or
// before now and returns how many were removed.
func (d *Database) PerformMaintenance(now time.Time) int {
	n := d.farmingRiskyIgnoredAppIDs.removeExpired(now)
	if n > 0 {
		d.logger.Debug("expired risky entries removed", "count", n)
	}
	d.observer.Swept(n)
	return n
}

// Set and map accessors.

func (d *Database) ExtraStorePackages() *IDSet[uint32]            { return d.extraStorePackages }
func (d *Database) FarmingBlacklistAppIDs() *IDSet[uint32]        { return d.farmingBlacklistAppIDs }
func (d *Database) FarmingPriorityQueueAppIDs() *IDSet[uint32]    { return d.farmingPriorityQueueAppIDs }
func (d *Database) FarmingRiskyPrioritizedAppIDs() *IDSet[uint32] { return d.farmingRiskyPrioritizedAppIDs }
func (d *Database) MatchActivelyBlacklistAppIDs() *IDSet[uint32]  { return d.matchActivelyBlacklistAppIDs }
func (d *Database) TradingBlacklistSteamIDs() *IDSet[uint64]      { return d.tradingBlacklistSteamIDs }
func (d *Database) FarmingRiskyIgnoredAppIDs() *ExpiryMap         { return d.farmingRiskyIgnoredAppIDs }
