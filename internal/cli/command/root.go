// Package command provides CLI command definitions for botvault-cli.
//
// Every command opens one account database, applies its change, waits for
// the write to reach disk and closes the database again.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/botvault/internal/cli/output"
	"github.com/yndnr/botvault/internal/infra/buildinfo"
	"github.com/yndnr/botvault/internal/storage/botdb"
	"github.com/yndnr/botvault/internal/telemetry/logger"
	"github.com/yndnr/botvault/pkg/crypto/seal"
)

const flushTimeout = 30 * time.Second

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "botvault-cli",
		Usage:   "Inspect and edit bot account databases",
		Version: buildinfo.Get().String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ShowCommand(),
			ValidateCommand(),
			QueueCommand(),
			BlacklistCommand(),
			SweepCommand(),
			StorageCommand(),
			AuthCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to the account database file",
			EnvVars:  []string{"BOTVAULT_DB"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "passphrase",
			Usage:   "Passphrase of a sealed database",
			EnvVars: []string{"BOTVAULT_PASSPHRASE"},
		},
		&cli.StringFlag{
			Name:  "cipher",
			Usage: "Cipher used when sealing: aes-gcm, chacha20-poly1305",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:  "no-headers",
			Usage: "Omit table headers",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log database activity to stderr",
		},
	}
}

// GlobalFlags holds the flags available to all commands.
type GlobalFlags struct {
	DB         string
	Passphrase string
	Cipher     string
	Output     string
	NoHeaders  bool
	Verbose    bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		DB:         c.String("db"),
		Passphrase: c.String("passphrase"),
		Cipher:     c.String("cipher"),
		Output:     c.String("output"),
		NoHeaders:  c.Bool("no-headers"),
		Verbose:    c.Bool("verbose"),
	}
}

func newLogger(c *cli.Context, verbose bool) *slog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	errWriter := c.App.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	l, err := logger.New(logger.Config{Level: level, Format: "text", Output: errWriter})
	if err != nil {
		return slog.Default()
	}
	return l.Slog()
}

// openDB opens the database named by --db.
func openDB(c *cli.Context) (*botdb.Database, error) {
	flags := ParseGlobalFlags(c)
	opts := []botdb.Option{botdb.WithLogger(newLogger(c, flags.Verbose))}
	if flags.Passphrase != "" {
		opts = append(opts, botdb.WithPassphrase([]byte(flags.Passphrase), seal.Algorithm(flags.Cipher)))
	}
	return botdb.CreateOrLoad(c.Context, flags.DB, opts...)
}

// withDB opens the database, runs fn, flushes pending writes and closes it.
func withDB(c *cli.Context, fn func(db *botdb.Database) error) (err error) {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	if err := fn(db); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, flushTimeout)
	defer cancel()
	if err := db.Flush(ctx); err != nil {
		return fmt.Errorf("write %s: %w", db.Path(), err)
	}
	return nil
}

// render writes data in the --output format.
func render(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return err
	}
	f := output.NewFormatter(format)
	if tf, ok := f.(*output.TableFormatter); ok {
		tf.NoHeaders = flags.NoHeaders
	}
	return f.Format(writer(c), data)
}

func writer(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

// Change is the machine-readable result of a mutating command.
type Change struct {
	Action  string `json:"action" yaml:"action"`
	Changed int    `json:"changed" yaml:"changed"`
}

// report prints msg for table output and ch otherwise.
func report(c *cli.Context, ch Change, msg string) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		_, err := fmt.Fprintln(writer(c), msg)
		return err
	}
	return render(c, ch)
}

// requireArgs fails when fewer than n positional arguments were given.
func requireArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return errors.New("missing argument: usage " + c.Command.HelpName + " " + c.Command.ArgsUsage)
	}
	return nil
}
