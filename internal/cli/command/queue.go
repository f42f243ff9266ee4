package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/botvault/internal/cli/output"
	"github.com/yndnr/botvault/internal/core/domain"
	"github.com/yndnr/botvault/internal/storage/botdb"
)

// QueueEntry is one queued key in list output.
type QueueEntry struct {
	Priority string `json:"priority" yaml:"priority"`
	Key      string `json:"key" yaml:"key"`
	Name     string `json:"name" yaml:"name"`
}

// QueueListing is the result of queue list.
type QueueListing []QueueEntry

// Table implements output.Tabler.
func (l QueueListing) Table() *output.Table {
	t := output.NewTable("PRIORITY", "KEY", "NAME")
	for _, e := range l {
		t.AddRow(e.Priority, e.Key, e.Name)
	}
	return t
}

// QueueCommand returns the queue subcommand group.
func QueueCommand() *cli.Command {
	priorityFlag := &cli.StringFlag{
		Name:    "priority",
		Aliases: []string{"p"},
		Usage:   "Queue tier: high, normal, low",
	}
	return &cli.Command{
		Name:  "queue",
		Usage: "Manage the background redemption queue",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List queued keys in redemption order",
				Flags: []cli.Flag{
					priorityFlag,
					&cli.BoolFlag{Name: "reveal", Usage: "Print keys unmasked"},
				},
				Action: queueList,
			},
			{
				Name:      "add",
				Usage:     "Queue keys for redemption",
				ArgsUsage: "KEY=NAME...",
				Flags:     []cli.Flag{priorityFlag},
				Action:    queueAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove keys from the highest tier holding them",
				ArgsUsage: "KEY...",
				Action:    queueRemove,
			},
			{
				Name:   "clear",
				Usage:  "Remove every queued key",
				Action: queueClear,
			},
		},
	}
}

func queueList(c *cli.Context) error {
	tiers := domain.Priorities[:]
	if s := c.String("priority"); s != "" {
		p, err := domain.ParsePriority(s)
		if err != nil {
			return err
		}
		tiers = []domain.Priority{p}
	}
	reveal := c.Bool("reveal")

	return withDB(c, func(db *botdb.Database) error {
		listing := QueueListing{}
		for _, p := range tiers {
			for _, item := range db.RedeemItems(p) {
				key := item.Key
				if !reveal {
					key = domain.MaskCDKey(key)
				}
				listing = append(listing, QueueEntry{Priority: p.String(), Key: key, Name: item.Name})
			}
		}
		return render(c, listing)
	})
}

// parseRedeemArgs parses KEY=NAME arguments. The name may contain '='.
func parseRedeemArgs(args []string) ([]domain.RedeemItem, error) {
	items := make([]domain.RedeemItem, 0, len(args))
	for _, arg := range args {
		key, name, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%w: expected KEY=NAME, got %q", domain.ErrInvalidArgument, domain.MaskCDKey(arg))
		}
		items = append(items, domain.RedeemItem{Key: strings.TrimSpace(key), Name: strings.TrimSpace(name)})
	}
	return items, nil
}

func queueAdd(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	p, err := domain.ParsePriority(c.String("priority"))
	if err != nil {
		return err
	}
	items, err := parseRedeemArgs(c.Args().Slice())
	if err != nil {
		return err
	}
	return withDB(c, func(db *botdb.Database) error {
		if err := db.EnqueueRedeem(items, p); err != nil {
			return err
		}
		return report(c, Change{Action: "queue add", Changed: len(items)},
			fmt.Sprintf("queued %d key(s) at %s priority", len(items), p))
	})
}

func queueRemove(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	return withDB(c, func(db *botdb.Database) error {
		removed := 0
		for _, key := range c.Args().Slice() {
			ok, err := db.RemoveRedeem(key)
			if err != nil {
				return err
			}
			if ok {
				removed++
			}
		}
		return report(c, Change{Action: "queue remove", Changed: removed},
			fmt.Sprintf("removed %d key(s)", removed))
	})
}

func queueClear(c *cli.Context) error {
	return withDB(c, func(db *botdb.Database) error {
		n := db.RedeemCount()
		if !db.ClearRedeem() {
			n = 0
		}
		return report(c, Change{Action: "queue clear", Changed: n},
			fmt.Sprintf("cleared %d key(s)", n))
	})
}
