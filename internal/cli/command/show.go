package command

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/botvault/internal/cli/output"
	"github.com/yndnr/botvault/internal/core/domain"
	"github.com/yndnr/botvault/internal/storage/botdb"
)

// Summary describes a database without revealing its secrets.
type Summary struct {
	Path string `json:"path" yaml:"path"`

	HasAccessToken         bool `json:"has_access_token" yaml:"has_access_token"`
	HasRefreshToken        bool `json:"has_refresh_token" yaml:"has_refresh_token"`
	HasSteamGuardData      bool `json:"has_steam_guard_data" yaml:"has_steam_guard_data"`
	HasCachedParentalCode  bool `json:"has_cached_parental_code" yaml:"has_cached_parental_code"`
	HasMobileAuthenticator bool `json:"has_mobile_authenticator" yaml:"has_mobile_authenticator"`

	TradeRestrictionsAcknowledged bool      `json:"trade_restrictions_acknowledged" yaml:"trade_restrictions_acknowledged"`
	ExtraStorePackagesRefreshedAt time.Time `json:"extra_store_packages_refreshed_at" yaml:"extra_store_packages_refreshed_at"`

	ExtraStorePackages            int `json:"extra_store_packages" yaml:"extra_store_packages"`
	FarmingBlacklistAppIDs        int `json:"farming_blacklist_app_ids" yaml:"farming_blacklist_app_ids"`
	FarmingPriorityQueueAppIDs    int `json:"farming_priority_queue_app_ids" yaml:"farming_priority_queue_app_ids"`
	FarmingRiskyIgnoredAppIDs     int `json:"farming_risky_ignored_app_ids" yaml:"farming_risky_ignored_app_ids"`
	FarmingRiskyPrioritizedAppIDs int `json:"farming_risky_prioritized_app_ids" yaml:"farming_risky_prioritized_app_ids"`
	MatchActivelyBlacklistAppIDs  int `json:"match_actively_blacklist_app_ids" yaml:"match_actively_blacklist_app_ids"`
	TradingBlacklistSteamIDs      int `json:"trading_blacklist_steam_ids" yaml:"trading_blacklist_steam_ids"`

	RedeemQueue map[string]int `json:"redeem_queue" yaml:"redeem_queue"`
	JSONStorage []string       `json:"json_storage_keys" yaml:"json_storage_keys"`
}

func summarize(db *botdb.Database) Summary {
	s := Summary{
		Path:                          db.Path(),
		HasAccessToken:                db.AccessToken() != "",
		HasRefreshToken:               db.RefreshToken() != "",
		HasSteamGuardData:             db.SteamGuardData() != "",
		HasCachedParentalCode:         db.CachedParentalCode() != "",
		HasMobileAuthenticator:        db.MobileAuthenticator() != nil,
		TradeRestrictionsAcknowledged: db.TradeRestrictionsAcknowledged(),
		ExtraStorePackagesRefreshedAt: db.ExtraStorePackagesRefreshedAt(),
		ExtraStorePackages:            db.ExtraStorePackages().Len(),
		FarmingBlacklistAppIDs:        db.FarmingBlacklistAppIDs().Len(),
		FarmingPriorityQueueAppIDs:    db.FarmingPriorityQueueAppIDs().Len(),
		FarmingRiskyIgnoredAppIDs:     db.FarmingRiskyIgnoredAppIDs().Len(),
		FarmingRiskyPrioritizedAppIDs: db.FarmingRiskyPrioritizedAppIDs().Len(),
		MatchActivelyBlacklistAppIDs:  db.MatchActivelyBlacklistAppIDs().Len(),
		TradingBlacklistSteamIDs:      db.TradingBlacklistSteamIDs().Len(),
		RedeemQueue:                   make(map[string]int, len(domain.Priorities)),
		JSONStorage:                   []string{},
	}
	depths := db.RedeemDepths()
	for _, p := range domain.Priorities {
		s.RedeemQueue[p.String()] = depths[p]
	}
	for key := range db.JSONStorage() {
		s.JSONStorage = append(s.JSONStorage, key)
	}
	sort.Strings(s.JSONStorage)
	return s
}

// Table implements output.Tabler.
func (s Summary) Table() *output.Table {
	t := output.NewTable("FIELD", "VALUE")
	yes := strconv.FormatBool
	t.AddRow("path", s.Path)
	t.AddRow("access_token", yes(s.HasAccessToken))
	t.AddRow("refresh_token", yes(s.HasRefreshToken))
	t.AddRow("steam_guard_data", yes(s.HasSteamGuardData))
	t.AddRow("cached_parental_code", yes(s.HasCachedParentalCode))
	t.AddRow("mobile_authenticator", yes(s.HasMobileAuthenticator))
	t.AddRow("trade_restrictions_acknowledged", yes(s.TradeRestrictionsAcknowledged))
	t.AddRow("extra_store_packages_refreshed_at", output.FormatValue(s.ExtraStorePackagesRefreshedAt))
	t.AddRow("extra_store_packages", strconv.Itoa(s.ExtraStorePackages))
	t.AddRow("farming_blacklist_app_ids", strconv.Itoa(s.FarmingBlacklistAppIDs))
	t.AddRow("farming_priority_queue_app_ids", strconv.Itoa(s.FarmingPriorityQueueAppIDs))
	t.AddRow("farming_risky_ignored_app_ids", strconv.Itoa(s.FarmingRiskyIgnoredAppIDs))
	t.AddRow("farming_risky_prioritized_app_ids", strconv.Itoa(s.FarmingRiskyPrioritizedAppIDs))
	t.AddRow("match_actively_blacklist_app_ids", strconv.Itoa(s.MatchActivelyBlacklistAppIDs))
	t.AddRow("trading_blacklist_steam_ids", strconv.Itoa(s.TradingBlacklistSteamIDs))
	for _, p := range domain.Priorities {
		t.AddRow("redeem_queue."+p.String(), strconv.Itoa(s.RedeemQueue[p.String()]))
	}
	t.AddRow("json_storage_keys", output.FormatValue(s.JSONStorage))
	return t
}

// ShowCommand prints a summary of the database.
func ShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Show a summary of the database",
		Action: func(c *cli.Context) error {
			return withDB(c, func(db *botdb.Database) error {
				return render(c, summarize(db))
			})
		},
	}
}

// ValidateCommand loads an existing database and reports whether it is valid.
func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check that an existing database loads and passes validation",
		Action: func(c *cli.Context) error {
			path := ParseGlobalFlags(c).DB
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%s: %w", path, err)
			}
			return withDB(c, func(db *botdb.Database) error {
				return report(c, Change{Action: "validate"}, db.Path()+": ok")
			})
		},
	}
}

// SweepCommand removes expired risky-ignored entries.
func SweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Remove expired entries",
		Action: func(c *cli.Context) error {
			return withDB(c, func(db *botdb.Database) error {
				n := db.PerformMaintenance(time.Now())
				return report(c, Change{Action: "sweep", Changed: n},
					fmt.Sprintf("removed %d expired entries", n))
			})
		},
	}
}
