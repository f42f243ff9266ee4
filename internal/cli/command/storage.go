package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/botvault/internal/cli/output"
	"github.com/yndnr/botvault/internal/core/domain"
	"github.com/yndnr/botvault/internal/storage/botdb"
)

// StorageCommand returns the storage subcommand group for free-form JSON
// values kept next to the known fields.
func StorageCommand() *cli.Command {
	return &cli.Command{
		Name:  "storage",
		Usage: "Manage free-form JSON values",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List stored keys and values",
				Action: storageList,
			},
			{
				Name:      "set",
				Usage:     "Store a JSON value under KEY",
				ArgsUsage: "KEY JSON",
				Action:    storageSet,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete KEY",
				ArgsUsage: "KEY",
				Action:    storageDelete,
			},
		},
	}
}

func storageList(c *cli.Context) error {
	return withDB(c, func(db *botdb.Database) error {
		values := db.JSONStorage()
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		raw := make(map[string]json.RawMessage, len(values))
		t := output.NewTable("KEY", "VALUE")
		for _, k := range keys {
			raw[k] = values[k]
			var buf bytes.Buffer
			if err := json.Compact(&buf, values[k]); err != nil {
				return err
			}
			t.AddRow(k, buf.String())
		}
		if f, _ := output.ParseFormat(c.String("output")); f == output.FormatTable {
			return render(c, t)
		}
		return render(c, rawValues(raw))
	})
}

// rawValues renders stored documents as nested values in yaml output.
func rawValues(raw map[string]json.RawMessage) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			decoded = string(v)
		}
		out[k] = decoded
	}
	return out
}

func storageSet(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	key, value := c.Args().Get(0), c.Args().Get(1)
	if !json.Valid([]byte(value)) {
		return fmt.Errorf("%w: value for %q is not valid JSON", domain.ErrInvalidArgument, key)
	}
	return withDB(c, func(db *botdb.Database) error {
		if err := db.SaveToJSONStorage(key, json.RawMessage(value)); err != nil {
			return err
		}
		return report(c, Change{Action: "storage set", Changed: 1}, "stored "+key)
	})
}

func storageDelete(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	key := c.Args().Get(0)
	return withDB(c, func(db *botdb.Database) error {
		_, existed := db.JSONStorage()[key]
		if err := db.DeleteFromJSONStorage(key); err != nil {
			return err
		}
		n := 0
		if existed {
			n = 1
		}
		return report(c, Change{Action: "storage delete", Changed: n}, fmt.Sprintf("deleted %d key(s)", n))
	})
}
