// Package numerator provides domain contracts for document auto-numbering.
package numerator

import (
	"fmt"
	"time"

	"flowdesk/internal/core/id"
)

// Period layouts understood by Config.
const (
	PeriodYear  = "2006"
	PeriodMonth = "200601"
	PeriodNone  = ""
)

// Config describes one numbering series, e.g. INV-2024-0001 or SALE-202401-0001.
type Config struct {
	// Prefix added to all numbers (e.g., "INV", "SALE")
	Prefix string

	// PeriodLayout is a time layout for the reset period. The counter restarts
	// whenever the formatted period changes. Empty means never reset.
	PeriodLayout string

	// PadWidth is the minimum width of the sequence part (default 4)
	PadWidth int
}

// DefaultConfig returns a yearly series with 4-digit sequence.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:       prefix,
		PeriodLayout: PeriodYear,
		PadWidth:     4,
	}
}

// Key identifies the counter row for owner and period.
// Every owner has independent series.
func (c Config) Key(ownerID id.ID, period time.Time) string {
	if c.PeriodLayout == PeriodNone {
		return fmt.Sprintf("%s:%s", c.Prefix, ownerID)
	}
	return fmt.Sprintf("%s:%s:%s", c.Prefix, ownerID, period.Format(c.PeriodLayout))
}

// Format renders the human-readable number for sequence value num.
func (c Config) Format(period time.Time, num int64) string {
	pad := c.PadWidth
	if pad <= 0 {
		pad = 4
	}
	if c.PeriodLayout == PeriodNone {
		return fmt.Sprintf("%s-%0*d", c.Prefix, pad, num)
	}
	return fmt.Sprintf("%s-%s-%0*d", c.Prefix, period.Format(c.PeriodLayout), pad, num)
}
