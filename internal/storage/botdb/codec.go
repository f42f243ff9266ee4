package botdb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/yndnr/botvault/internal/core/authenticator"
	"github.com/yndnr/botvault/internal/core/domain"
)

// Top-level document keys.
const (
	keyAccessToken                   = "BackingAccessToken"
	keyRefreshToken                  = "BackingRefreshToken"
	keySteamGuardData                = "BackingSteamGuardData"
	keyCachedParentalCode            = "CachedSteamParentalCode"
	keyTradeRestrictionsAcknowledged = "BackingTradeRestrictionsAcknowledged"
	keyMobileAuthenticator           = "_MobileAuthenticator"
	keyExtraStorePackages            = "ExtraStorePackages"
	keyExtraStorePackagesRefreshedAt = "BackingExtraStorePackagesRefreshedAt"
	keyFarmingBlacklistAppIDs        = "FarmingBlacklistAppIDs"
	keyFarmingPriorityQueueAppIDs    = "FarmingPriorityQueueAppIDs"
	keyFarmingRiskyIgnoredAppIDs     = "FarmingRiskyIgnoredAppIDs"
	keyFarmingRiskyPrioritizedAppIDs = "FarmingRiskyPrioritizedAppIDs"
	keyMatchActivelyBlacklistAppIDs  = "MatchActivelyBlacklistAppIDs"
	keyTradingBlacklistSteamIDs      = "TradingBlacklistSteamIDs"
	keyRedeemNormal                  = "GamesToRedeemInBackground"
	keyRedeemHigh                    = "GamesToRedeemInBackgroundHigh"
	keyRedeemLow                     = "GamesToRedeemInBackgroundLow"
)

// schemaKeys lists the keys owned by the structured document, in write order.
var schemaKeys = []string{
	keyAccessToken,
	keyRefreshToken,
	keySteamGuardData,
	keyCachedParentalCode,
	keyTradeRestrictionsAcknowledged,
	keyMobileAuthenticator,
	keyExtraStorePackages,
	keyExtraStorePackagesRefreshedAt,
	keyFarmingBlacklistAppIDs,
	keyFarmingPriorityQueueAppIDs,
	keyFarmingRiskyIgnoredAppIDs,
	keyFarmingRiskyPrioritizedAppIDs,
	keyMatchActivelyBlacklistAppIDs,
	keyTradingBlacklistSteamIDs,
	keyRedeemNormal,
	keyRedeemHigh,
	keyRedeemLow,
}

var redeemKeys = map[string]domain.Priority{
	keyRedeemHigh:   domain.PriorityHigh,
	keyRedeemNormal: domain.PriorityNormal,
	keyRedeemLow:    domain.PriorityLow,
}

// document is the decoded or to-be-encoded form of a database file.
type document struct {
	accessToken                   string
	refreshToken                  string
	steamGuardData                string
	cachedParentalCode            string
	tradeRestrictionsAcknowledged bool
	mobileAuthenticator           *authenticator.Authenticator
	extraStorePackagesRefreshedAt time.Time

	extraStorePackages            []uint32
	farmingBlacklistAppIDs        []uint32
	farmingPriorityQueueAppIDs    []uint32
	farmingRiskyPrioritizedAppIDs []uint32
	matchActivelyBlacklistAppIDs  []uint32
	tradingBlacklistSteamIDs      []uint64
	farmingRiskyIgnoredAppIDs     map[uint32]time.Time

	redeem [3][]domain.RedeemItem // indexed by domain.Priority
	extra  map[string]json.RawMessage
}

// snapshot captures the current state. Each tier is copied under its own lock.
func (d *Database) snapshot() *document {
	doc := &document{
		extraStorePackages:            d.extraStorePackages.Items(),
		farmingBlacklistAppIDs:        d.farmingBlacklistAppIDs.Items(),
		farmingPriorityQueueAppIDs:    d.farmingPriorityQueueAppIDs.Items(),
		farmingRiskyPrioritizedAppIDs: d.farmingRiskyPrioritizedAppIDs.Items(),
		matchActivelyBlacklistAppIDs:  d.matchActivelyBlacklistAppIDs.Items(),
		tradingBlacklistSteamIDs:      d.tradingBlacklistSteamIDs.Items(),
		farmingRiskyIgnoredAppIDs:     d.farmingRiskyIgnoredAppIDs.Items(),
		extra:                         d.file.Extra(),
	}

	d.mu.RLock()
	doc.accessToken = d.accessToken
	doc.refreshToken = d.refreshToken
	doc.steamGuardData = d.steamGuardData
	doc.cachedParentalCode = d.cachedParentalCode
	doc.tradeRestrictionsAcknowledged = d.tradeRestrictionsAcknowledged
	doc.mobileAuthenticator = d.mobileAuthenticator
	doc.extraStorePackagesRefreshedAt = d.extraStorePackagesRefreshedAt
	d.mu.RUnlock()

	for _, p := range domain.Priorities {
		doc.redeem[p] = d.RedeemItems(p)
	}
	return doc
}

func (d *Database) encode() ([]byte, error) {
	return d.snapshot().encode()
}

// objectWriter emits a JSON object with keys in call order.
type objectWriter struct {
	buf bytes.Buffer
	n   int
}

func (w *objectWriter) raw(key string, value []byte) {
	if w.n == 0 {
		w.buf.WriteByte('{')
	} else {
		w.buf.WriteByte(',')
	}
	k, _ := json.Marshal(key)
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(value)
	w.n++
}

func (w *objectWriter) value(key string, v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	w.raw(key, encoded)
	return nil
}

func (w *objectWriter) bytes() []byte {
	if w.n == 0 {
		return []byte("{}")
	}
	w.buf.WriteByte('}')
	return w.buf.Bytes()
}

// encode writes schema fields in fixed order, omitting defaults, followed by
// the sub-documents in key order.
func (doc *document) encode() ([]byte, error) {
	var w objectWriter

	strs := []struct {
		key, v string
	}{
		{keyAccessToken, doc.accessToken},
		{keyRefreshToken, doc.refreshToken},
		{keySteamGuardData, doc.steamGuardData},
		{keyCachedParentalCode, doc.cachedParentalCode},
	}
	for _, s := range strs {
		if s.v != "" {
			if err := w.value(s.key, s.v); err != nil {
				return nil, err
			}
		}
	}
	if doc.tradeRestrictionsAcknowledged {
		w.raw(keyTradeRestrictionsAcknowledged, []byte("true"))
	}
	if doc.mobileAuthenticator != nil {
		if err := w.value(keyMobileAuthenticator, doc.mobileAuthenticator); err != nil {
			return nil, err
		}
	}

	fields := []struct {
		key   string
		v     any
		empty bool
	}{
		{keyExtraStorePackages, doc.extraStorePackages, len(doc.extraStorePackages) == 0},
		{keyExtraStorePackagesRefreshedAt, doc.extraStorePackagesRefreshedAt, doc.extraStorePackagesRefreshedAt.IsZero()},
		{keyFarmingBlacklistAppIDs, doc.farmingBlacklistAppIDs, len(doc.farmingBlacklistAppIDs) == 0},
		{keyFarmingPriorityQueueAppIDs, doc.farmingPriorityQueueAppIDs, len(doc.farmingPriorityQueueAppIDs) == 0},
		{keyFarmingRiskyIgnoredAppIDs, doc.farmingRiskyIgnoredAppIDs, len(doc.farmingRiskyIgnoredAppIDs) == 0},
		{keyFarmingRiskyPrioritizedAppIDs, doc.farmingRiskyPrioritizedAppIDs, len(doc.farmingRiskyPrioritizedAppIDs) == 0},
		{keyMatchActivelyBlacklistAppIDs, doc.matchActivelyBlacklistAppIDs, len(doc.matchActivelyBlacklistAppIDs) == 0},
		{keyTradingBlacklistSteamIDs, doc.tradingBlacklistSteamIDs, len(doc.tradingBlacklistSteamIDs) == 0},
	}
	for _, f := range fields {
		if f.empty {
			continue
		}
		if err := w.value(f.key, f.v); err != nil {
			return nil, err
		}
	}

	for _, q := range []struct {
		key string
		p   domain.Priority
	}{
		{keyRedeemNormal, domain.PriorityNormal},
		{keyRedeemHigh, domain.PriorityHigh},
		{keyRedeemLow, domain.PriorityLow},
	} {
		items := doc.redeem[q.p]
		if len(items) == 0 {
			continue
		}
		encoded, err := encodeRedeemTier(items)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", q.key, err)
		}
		w.raw(q.key, encoded)
	}

	extraKeys := make([]string, 0, len(doc.extra))
	for k := range doc.extra {
		extraKeys = append(extraKeys, k)
	}
	slices.Sort(extraKeys)
	for _, k := range extraKeys {
		w.raw(k, doc.extra[k])
	}

	var out bytes.Buffer
	if err := json.Indent(&out, w.bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indent document: %w", err)
	}
	return out.Bytes(), nil
}

// encodeRedeemTier writes a tier as a JSON object in queue order.
func encodeRedeemTier(items []domain.RedeemItem) ([]byte, error) {
	var w objectWriter
	for _, item := range items {
		if err := w.value(item.Key, item.Name); err != nil {
			return nil, err
		}
	}
	return w.bytes(), nil
}

// decodeDocument parses a database file. Unknown keys are kept in extra.
func decodeDocument(data []byte) (*document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("document is null")
	}

	doc := &document{extra: make(map[string]json.RawMessage)}
	for key, raw := range fields {
		if p, ok := redeemKeys[key]; ok {
			items, err := decodeRedeemTier(raw)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
			doc.redeem[p] = items
			continue
		}

		target := doc.fieldFor(key)
		if target == nil {
			doc.extra[key] = raw
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
	}
	return doc, nil
}

func (doc *document) fieldFor(key string) any {
	switch key {
	case keyAccessToken:
		return &doc.accessToken
	case keyRefreshToken:
		return &doc.refreshToken
	case keySteamGuardData:
		return &doc.steamGuardData
	case keyCachedParentalCode:
		return &doc.cachedParentalCode
	case keyTradeRestrictionsAcknowledged:
		return &doc.tradeRestrictionsAcknowledged
	case keyMobileAuthenticator:
		return &doc.mobileAuthenticator
	case keyExtraStorePackages:
		return &doc.extraStorePackages
	case keyExtraStorePackagesRefreshedAt:
		return &doc.extraStorePackagesRefreshedAt
	case keyFarmingBlacklistAppIDs:
		return &doc.farmingBlacklistAppIDs
	case keyFarmingPriorityQueueAppIDs:
		return &doc.farmingPriorityQueueAppIDs
	case keyFarmingRiskyIgnoredAppIDs:
		return &doc.farmingRiskyIgnoredAppIDs
	case keyFarmingRiskyPrioritizedAppIDs:
		return &doc.farmingRiskyPrioritizedAppIDs
	case keyMatchActivelyBlacklistAppIDs:
		return &doc.matchActivelyBlacklistAppIDs
	case keyTradingBlacklistSteamIDs:
		return &doc.tradingBlacklistSteamIDs
	}
	return nil
}

// decodeRedeemTier reads a JSON object of key -> name pairs in file order.
// null decodes to an empty tier.
func decodeRedeemTier(raw json.RawMessage) ([]domain.RedeemItem, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var items []domain.RedeemItem
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", keyTok)
		}

		var name *string
		if err := dec.Decode(&name); err != nil {
			return nil, fmt.Errorf("value of %s: %w", domain.MaskCDKey(key), err)
		}
		item := domain.RedeemItem{Key: key}
		if name != nil {
			item.Name = *name
		}
		items = append(items, item)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after object")
	}
	return items, nil
}
