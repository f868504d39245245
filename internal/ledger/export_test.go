package ledger

import "time"

// SetClock replaces the time source stamped on published events.
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}
