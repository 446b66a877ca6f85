package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                               "00:00",
		-5 * time.Second:                "00:00",
		999 * time.Millisecond:          "00:00",
		65 * time.Second:                "01:05",
		59*time.Minute + 59*time.Second: "59:59",
		time.Hour:                       "1:00:00",
		2*time.Hour + 3*time.Minute + 4*time.Second: "2:03:04",
	}
	for d, want := range cases {
		assert.Equal(t, want, FormatDuration(d), d.String())
	}
}

func TestElapsed(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	call := CallSession{StartedAt: start}
	assert.Zero(t, call.Elapsed(start.Add(time.Minute)))

	connected := start.Add(10 * time.Second)
	call.ConnectedAt = &connected
	assert.Equal(t, 50*time.Second, call.Elapsed(start.Add(time.Minute)))
	assert.Zero(t, call.Elapsed(start))

	ended := start.Add(40 * time.Second)
	call.EndedAt = &ended
	assert.Equal(t, 30*time.Second, call.Elapsed(start.Add(time.Hour)))
}
