// Package provider adapts the external market-data API into the
// gateway's quote shape.
package provider

import (
	"context"
	"fmt"

	"github.com/stockgate/stockgate/internal/models"
)

// QuoteFetcher resolves a symbol into its latest daily quote.
type QuoteFetcher interface {
	Fetch(ctx context.Context, symbol string) (*models.Quote, error)
}

// Error is the single failure taxonomy for upstream lookups: network
// failures, non-success statuses, malformed payloads and unknown
// symbols all surface through it. Reason is safe to log but is not
// returned to API callers.
type Error struct {
	Symbol string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider error for %q: %s: %v", e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("provider error for %q: %s", e.Symbol, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}
