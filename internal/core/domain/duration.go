package domain

import (
	"fmt"
	"time"
)

// FormatDuration renders an elapsed call time as MM:SS, or H:MM:SS once it
// passes an hour. Negative durations render as 00:00.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Elapsed is the connected time of a call at now, zero if it never connected.
func (c CallSession) Elapsed(now time.Time) time.Duration {
	if c.ConnectedAt == nil {
		return 0
	}
	end := now
	if c.EndedAt != nil {
		end = *c.EndedAt
	}
	if end.Before(*c.ConnectedAt) {
		return 0
	}
	return end.Sub(*c.ConnectedAt)
}
