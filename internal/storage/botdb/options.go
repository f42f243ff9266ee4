package botdb

import (
	"log/slog"
	"time"

	"github.com/yndnr/botvault/internal/storage/jsonfile"
	"github.com/yndnr/botvault/pkg/crypto/seal"
)

// Observer receives write-back and maintenance events. Implementations must
// not block.
type Observer interface {
	SaveScheduled()
	SaveCompleted(elapsed time.Duration, err error)
	Swept(removed int)
}

type nopObserver struct{}

func (nopObserver) SaveScheduled()                    {}
func (nopObserver) SaveCompleted(time.Duration, error) {}
func (nopObserver) Swept(int)                          {}

type options struct {
	logger   *slog.Logger
	observer Observer
	fileOpts []jsonfile.Option
}

// Option configures CreateOrLoad.
type Option func(*options)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithPassphrase seals the file at rest. An empty passphrase disables sealing.
func WithPassphrase(passphrase []byte, algo seal.Algorithm) Option {
	return func(o *options) {
		o.fileOpts = append(o.fileOpts, jsonfile.WithPassphrase(passphrase, algo))
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   slog.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
