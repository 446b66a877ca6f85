package pion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wyydra/yacall/internal/core/domain"
)

type eventLog struct {
	mu     sync.Mutex
	events []domain.MediaEvent
}

func (l *eventLog) add(ev domain.MediaEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) snapshot() []domain.MediaEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.MediaEvent(nil), l.events...)
}

func (l *eventLog) has(kind domain.MediaEventKind) bool {
	for _, ev := range l.snapshot() {
		if ev.Kind == kind {
			return true
		}
	}
	return false
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{})
	require.NoError(t, err)
	t.Cleanup(m.Teardown)
	return m
}

func TestTeardownWithoutSessionIsNoop(t *testing.T) {
	m := newTestManager(t)

	assert.NotPanics(t, func() {
		m.Teardown()
		m.Teardown()
	})
	assert.False(t, m.ToggleAudio())
	assert.False(t, m.ToggleVideo())
	m.ApplyNegotiationDatum(domain.NegotiationDatum{RoomID: "room", Kind: domain.SignalOffer, Data: "v=0"})
}

func TestInitiatorEmitsOfferFirst(t *testing.T) {
	m := newTestManager(t)
	events := &eventLog{}

	require.NoError(t, m.StartAsInitiator(context.Background(), "room", true, events.add))

	require.Eventually(t, func() bool { return len(events.snapshot()) > 0 }, 5*time.Second, 10*time.Millisecond)
	first := events.snapshot()[0]
	assert.Equal(t, domain.EventOutgoingSignal, first.Kind)
	assert.Equal(t, domain.SignalOffer, first.Signal.Kind)
	assert.Contains(t, first.Signal.Data, "m=audio")
	assert.Contains(t, first.Signal.Data, "m=video")

	m.Teardown()
	m.Teardown()
}

func TestResponderWaitsForOffer(t *testing.T) {
	m := newTestManager(t)
	events := &eventLog{}

	require.NoError(t, m.StartAsResponder(context.Background(), "room", false, events.add))
	m.ApplyNegotiationDatum(domain.NegotiationDatum{
		RoomID: "room",
		Kind:   domain.SignalCandidate,
		Data:   `{"candidate":"candidate:1 1 udp 2130706431 127.0.0.1 50000 typ host","sdpMid":"0","sdpMLineIndex":0}`,
	})

	assert.Never(t, func() bool { return len(events.snapshot()) > 0 }, 200*time.Millisecond, 20*time.Millisecond)
}

func TestCaptureFailureIsMediaUnavailable(t *testing.T) {
	m, err := NewManager(Config{Capturer: SampleCapturer{Audio: true}})
	require.NoError(t, err)

	err = m.StartAsInitiator(context.Background(), "room", true, func(domain.MediaEvent) {})

	assert.ErrorIs(t, err, domain.ErrMediaUnavailable)
	assert.False(t, m.ToggleAudio())
}

func TestCancelledStartReleasesEverything(t *testing.T) {
	m := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.StartAsResponder(ctx, "room", false, func(domain.MediaEvent) {})

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, m.current())
}

func TestTogglesReplaceTracks(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.StartAsResponder(context.Background(), "room", true, func(domain.MediaEvent) {}))

	assert.True(t, m.ToggleAudio())
	assert.False(t, m.ToggleAudio())
	assert.False(t, m.ToggleVideo())
	assert.True(t, m.ToggleVideo())
}

// Two managers negotiate over loopback, each side's outgoing signals fed
// straight into the other.
func TestLoopbackCallConnects(t *testing.T) {
	caller := newTestManager(t)
	callee := newTestManager(t)
	callerEvents := &eventLog{}
	calleeEvents := &eventLog{}

	require.NoError(t, callee.StartAsResponder(context.Background(), "room", false, func(ev domain.MediaEvent) {
		calleeEvents.add(ev)
		if ev.Kind == domain.EventOutgoingSignal {
			caller.ApplyNegotiationDatum(ev.Signal)
		}
	}))
	require.NoError(t, caller.StartAsInitiator(context.Background(), "room", false, func(ev domain.MediaEvent) {
		callerEvents.add(ev)
		if ev.Kind == domain.EventOutgoingSignal {
			callee.ApplyNegotiationDatum(ev.Signal)
		}
	}))

	require.Eventually(t, func() bool {
		return callerEvents.has(domain.EventConnected) && calleeEvents.has(domain.EventConnected)
	}, 20*time.Second, 50*time.Millisecond)

	first := calleeEvents.snapshot()[0]
	assert.Equal(t, domain.SignalAnswer, first.Signal.Kind)

	callee.Teardown()
	caller.Teardown()
}

type hookedCapturer struct {
	SampleCapturer
	onCapture func()
}

func (c hookedCapturer) Capture(ctx context.Context, wantsVideo bool) (*LocalMedia, error) {
	c.onCapture()
	return c.SampleCapturer.Capture(ctx, wantsVideo)
}

func TestStartReleasesPreviousSessionFirst(t *testing.T) {
	var previous *handle
	var previousClosed bool
	capturer := hookedCapturer{
		SampleCapturer: SampleCapturer{Audio: true},
		onCapture: func() {
			if previous == nil {
				return
			}
			select {
			case <-previous.done:
				previousClosed = true
			default:
			}
		},
	}
	m, err := NewManager(Config{Capturer: capturer})
	require.NoError(t, err)
	t.Cleanup(m.Teardown)

	require.NoError(t, m.StartAsResponder(context.Background(), "room-1", false, func(domain.MediaEvent) {}))
	previous = m.current()
	require.NotNil(t, previous)

	require.NoError(t, m.StartAsResponder(context.Background(), "room-2", false, func(domain.MediaEvent) {}))

	assert.True(t, previousClosed)
	require.NotNil(t, m.current())
	assert.Equal(t, domain.RoomID("room-2"), m.current().roomID)
}
