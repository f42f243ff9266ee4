package botdb

import (
	"time"

	"github.com/yndnr/botvault/internal/core/authenticator"
)

// setField stores v in *field under d.mu and schedules a save when it differs.
func setField[T comparable](d *Database, field *T, v T) {
	d.mu.Lock()
	if *field == v {
		d.mu.Unlock()
		return
	}
	*field = v
	d.mu.Unlock()
	d.scheduleSave()
}

func getField[T any](d *Database, field *T) T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return *field
}

// AccessToken returns the cached access token, "" when absent.
func (d *Database) AccessToken() string { return getField(d, &d.accessToken) }

// SetAccessToken updates the access token. "" clears it.
func (d *Database) SetAccessToken(v string) { setField(d, &d.accessToken, v) }

func (d *Database) RefreshToken() string     { return getField(d, &d.refreshToken) }
func (d *Database) SetRefreshToken(v string) { setField(d, &d.refreshToken, v) }

func (d *Database) SteamGuardData() string     { return getField(d, &d.steamGuardData) }
func (d *Database) SetSteamGuardData(v string) { setField(d, &d.steamGuardData, v) }

func (d *Database) CachedParentalCode() string     { return getField(d, &d.cachedParentalCode) }
func (d *Database) SetCachedParentalCode(v string) { setField(d, &d.cachedParentalCode, v) }

func (d *Database) TradeRestrictionsAcknowledged() bool {
	return getField(d, &d.tradeRestrictionsAcknowledged)
}

func (d *Database) SetTradeRestrictionsAcknowledged(v bool) {
	setField(d, &d.tradeRestrictionsAcknowledged, v)
}

// ExtraStorePackagesRefreshedAt returns when ExtraStorePackages was last
// refreshed. The zero time means never.
func (d *Database) ExtraStorePackagesRefreshedAt() time.Time {
	return getField(d, &d.extraStorePackagesRefreshedAt)
}

// SetExtraStorePackagesRefreshedAt records the refresh time. Times are
// compared with Equal, so a change of location alone is a no-op.
func (d *Database) SetExtraStorePackagesRefreshedAt(v time.Time) {
	d.mu.Lock()
	if d.extraStorePackagesRefreshedAt.Equal(v) {
		d.mu.Unlock()
		return
	}
	d.extraStorePackagesRefreshedAt = v
	d.mu.Unlock()
	d.scheduleSave()
}

// MobileAuthenticator returns the owned authenticator, nil when none.
func (d *Database) MobileAuthenticator() *authenticator.Authenticator {
	return getField(d, &d.mobileAuthenticator)
}

// SetMobileAuthenticator replaces the owned authenticator. The previous one
// is closed and the new one reports its own changes to this database.
func (d *Database) SetMobileAuthenticator(a *authenticator.Authenticator) {
	d.mu.Lock()
	prev := d.mobileAuthenticator
	if prev == a {
		d.mu.Unlock()
		return
	}
	d.mobileAuthenticator = a
	d.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	if a != nil {
		a.Bind(d.scheduleSave)
	}
	d.scheduleSave()
}
