package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/botvault/internal/cli/output"
	"github.com/yndnr/botvault/internal/storage/botdb"
)

var errNoAuthenticator = errors.New("database has no mobile authenticator")

// AuthCode is the result of auth code.
type AuthCode struct {
	Code      string    `json:"code" yaml:"code"`
	ValidFrom time.Time `json:"valid_from" yaml:"valid_from"`
}

// AuthCommand returns the auth subcommand group.
func AuthCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Use the stored mobile authenticator",
		Subcommands: []*cli.Command{
			{
				Name:  "code",
				Usage: "Print the current two-factor code",
				Action: func(c *cli.Context) error {
					return withDB(c, func(db *botdb.Database) error {
						auth := db.MobileAuthenticator()
						if auth == nil {
							return errNoAuthenticator
						}
						now := time.Now().UTC()
						code, err := auth.GenerateCode(now)
						if err != nil {
							return err
						}
						res := AuthCode{Code: code, ValidFrom: now.Truncate(30 * time.Second)}
						if f, _ := output.ParseFormat(c.String("output")); f == output.FormatTable {
							_, err := fmt.Fprintln(writer(c), res.Code)
							return err
						}
						return render(c, res)
					})
				},
			},
		},
	}
}
