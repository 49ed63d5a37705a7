package rma

import (
	"fmt"

	"github.com/rma/plugin/internal/domain/rma"
)

// Settings are the behaviour toggles for return order completion processing.
// They are loaded once at startup from configuration and injected into the
// completion handler.
type Settings struct {
	// AutoStatusChange applies the outcome-to-status mapping to each
	// returned stock item when the order completes
	AutoStatusChange bool

	// CustomerReassign puts returned and repaired items back into the
	// ordering customer's possession
	CustomerReassign bool

	// TrackingNotes writes a stock history entry for every change made
	// during completion processing
	TrackingNotes bool

	// ConsumeRepairParts deducts unconsumed repair allocations from stock
	// when the order completes
	ConsumeRepairParts bool

	// Mapping is the outcome-to-status table used by AutoStatusChange
	Mapping rma.StatusMapping
}

// DefaultSettings returns the out-of-the-box behaviour: status changes and
// part consumption on, customer reassignment off.
func DefaultSettings() Settings {
	return Settings{
		AutoStatusChange:   true,
		CustomerReassign:   false,
		TrackingNotes:      true,
		ConsumeRepairParts: true,
		Mapping:            rma.DefaultStatusMapping(),
	}
}

// Validate checks that every mapping entry targets a known stock status
func (s Settings) Validate() error {
	for outcome, status := range s.Mapping {
		if !outcome.IsActionable() {
			return fmt.Errorf("status mapping contains non-actionable outcome %s", outcome)
		}
		if !status.IsValid() {
			return fmt.Errorf("status mapping for %s targets unknown stock status %d", outcome, int(status))
		}
	}
	return nil
}
