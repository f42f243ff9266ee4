package command

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/botvault/internal/core/domain"
	"github.com/yndnr/botvault/internal/storage/botdb"
)

// Blacklist kinds selectable with --kind.
const (
	KindFarming  = "farming"
	KindMatch    = "match"
	KindTrading  = "trading"
	KindPriority = "priority"
	KindRisky    = "risky-prioritized"
	KindPackages = "store-packages"
)

// idList adapts one of the database ID sets to string arguments.
type idList struct {
	add    func(args []string) (int, error)
	remove func(args []string) (int, error)
	items  func() []string
}

func parseIDs[T uint32 | uint64](args []string, bits int) ([]T, error) {
	ids := make([]T, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseUint(a, 10, bits)
		if err != nil || v == 0 {
			return nil, fmt.Errorf("%w: invalid id %q", domain.ErrInvalidArgument, a)
		}
		ids = append(ids, T(v))
	}
	return ids, nil
}

func listFor[T uint32 | uint64](set *botdb.IDSet[T], bits int) idList {
	return idList{
		add: func(args []string) (int, error) {
			ids, err := parseIDs[T](args, bits)
			if err != nil {
				return 0, err
			}
			return set.Add(ids...), nil
		},
		remove: func(args []string) (int, error) {
			ids, err := parseIDs[T](args, bits)
			if err != nil {
				return 0, err
			}
			return set.Remove(ids...), nil
		},
		items: func() []string {
			items := set.Items()
			out := make([]string, len(items))
			for i, id := range items {
				out[i] = strconv.FormatUint(uint64(id), 10)
			}
			return out
		},
	}
}

func selectList(db *botdb.Database, kind string) (idList, error) {
	switch kind {
	case "", KindFarming:
		return listFor(db.FarmingBlacklistAppIDs(), 32), nil
	case KindMatch:
		return listFor(db.MatchActivelyBlacklistAppIDs(), 32), nil
	case KindTrading:
		return listFor(db.TradingBlacklistSteamIDs(), 64), nil
	case KindPriority:
		return listFor(db.FarmingPriorityQueueAppIDs(), 32), nil
	case KindRisky:
		return listFor(db.FarmingRiskyPrioritizedAppIDs(), 32), nil
	case KindPackages:
		return listFor(db.ExtraStorePackages(), 32), nil
	default:
		return idList{}, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidArgument, kind)
	}
}

// BlacklistCommand returns the blacklist subcommand group.
func BlacklistCommand() *cli.Command {
	kindFlag := &cli.StringFlag{
		Name:    "kind",
		Aliases: []string{"k"},
		Usage:   "List to edit: farming, match, trading, priority, risky-prioritized, store-packages",
		Value:   KindFarming,
	}
	return &cli.Command{
		Name:  "blacklist",
		Usage: "Manage app and account ID lists",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List IDs in ascending order",
				Flags:  []cli.Flag{kindFlag},
				Action: blacklistList,
			},
			{
				Name:      "add",
				Usage:     "Add IDs",
				ArgsUsage: "ID...",
				Flags:     []cli.Flag{kindFlag},
				Action:    blacklistEdit("add"),
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove IDs",
				ArgsUsage: "ID...",
				Flags:     []cli.Flag{kindFlag},
				Action:    blacklistEdit("remove"),
			},
		},
	}
}

func blacklistList(c *cli.Context) error {
	return withDB(c, func(db *botdb.Database) error {
		list, err := selectList(db, c.String("kind"))
		if err != nil {
			return err
		}
		return render(c, list.items())
	})
}

func blacklistEdit(action string) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := requireArgs(c, 1); err != nil {
			return err
		}
		return withDB(c, func(db *botdb.Database) error {
			list, err := selectList(db, c.String("kind"))
			if err != nil {
				return err
			}
			apply := list.add
			if action == "remove" {
				apply = list.remove
			}
			n, err := apply(c.Args().Slice())
			if err != nil {
				return err
			}
			return report(c, Change{Action: "blacklist " + action, Changed: n},
				fmt.Sprintf("%s: %d id(s) changed", c.String("kind"), n))
		})
	}
}
