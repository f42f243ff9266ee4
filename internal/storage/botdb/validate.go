package botdb

import (
	"fmt"

	"github.com/yndnr/botvault/internal/core/domain"
)

// validate checks every queued redeem item and the mobile authenticator.
func (doc *document) validate() error {
	for _, p := range domain.Priorities {
		for i, item := range doc.redeem[p] {
			if err := item.Validate(); err != nil {
				return fmt.Errorf("%s tier item %d: %w", p, i, err)
			}
		}
	}
	if doc.mobileAuthenticator != nil {
		if err := doc.mobileAuthenticator.Validate(); err != nil {
			return fmt.Errorf("mobile authenticator: %w", err)
		}
	}
	return nil
}
