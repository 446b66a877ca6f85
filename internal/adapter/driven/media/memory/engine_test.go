package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wyydra/yacall/internal/core/domain"
)

type recorder struct {
	events []domain.MediaEvent
}

func (r *recorder) handle(ev domain.MediaEvent) {
	r.events = append(r.events, ev)
}

func (r *recorder) signals() []domain.NegotiationDatum {
	var out []domain.NegotiationDatum
	for _, ev := range r.events {
		if ev.Kind == domain.EventOutgoingSignal {
			out = append(out, ev.Signal)
		}
	}
	return out
}

func TestInitiatorEmitsOfferFirst(t *testing.T) {
	e := NewEngine(Options{Candidates: 2})
	rec := &recorder{}

	require.NoError(t, e.StartAsInitiator(context.Background(), "room", true, rec.handle))

	signals := rec.signals()
	require.Len(t, signals, 3)
	assert.Equal(t, domain.SignalOffer, signals[0].Kind)
	assert.Equal(t, domain.SignalCandidate, signals[1].Kind)
	assert.Equal(t, domain.SignalCandidate, signals[2].Kind)
	for _, s := range signals {
		assert.Equal(t, domain.RoomID("room"), s.RoomID)
	}
}

func TestResponderAnswersOnlyAfterOffer(t *testing.T) {
	e := NewEngine(Options{})
	rec := &recorder{}

	require.NoError(t, e.StartAsResponder(context.Background(), "room", false, rec.handle))
	assert.Empty(t, rec.events)

	e.ApplyNegotiationDatum(domain.NegotiationDatum{RoomID: "room", Kind: domain.SignalCandidate, Data: "early"})
	assert.Empty(t, rec.events)
	assert.Len(t, e.Rejected(), 1)

	e.ApplyNegotiationDatum(domain.NegotiationDatum{RoomID: "room", Kind: domain.SignalOffer, Data: "offer"})
	signals := rec.signals()
	require.Len(t, signals, 2)
	assert.Equal(t, domain.SignalAnswer, signals[0].Kind)
	assert.Equal(t, domain.SignalCandidate, signals[1].Kind)
}

func TestDatumForOtherRoomIsDropped(t *testing.T) {
	e := NewEngine(Options{})
	rec := &recorder{}
	require.NoError(t, e.StartAsResponder(context.Background(), "room", false, rec.handle))

	e.ApplyNegotiationDatum(domain.NegotiationDatum{RoomID: "other", Kind: domain.SignalOffer, Data: "offer"})

	assert.Empty(t, rec.events)
	assert.Empty(t, e.Applied())
}

func TestAutoConnectReportsStreamThenConnected(t *testing.T) {
	e := NewEngine(Options{AutoConnect: true})
	rec := &recorder{}
	require.NoError(t, e.StartAsInitiator(context.Background(), "room", true, rec.handle))
	rec.events = nil

	e.ApplyNegotiationDatum(domain.NegotiationDatum{RoomID: "room", Kind: domain.SignalAnswer, Data: "answer"})

	require.Len(t, rec.events, 2)
	assert.Equal(t, domain.EventRemoteStream, rec.events[0].Kind)
	assert.True(t, rec.events[0].Stream.HasKind("video"))
	assert.Equal(t, domain.EventConnected, rec.events[1].Kind)
}

func TestCaptureFailureIsMediaUnavailable(t *testing.T) {
	e := NewEngine(Options{FailCapture: errors.New("no camera")})

	err := e.StartAsInitiator(context.Background(), "room", true, func(domain.MediaEvent) {})

	assert.ErrorIs(t, err, domain.ErrMediaUnavailable)
	assert.False(t, e.Active())
}

func TestCancelledStartFails(t *testing.T) {
	e := NewEngine(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.StartAsResponder(ctx, "room", false, func(domain.MediaEvent) {})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, e.Active())
}

func TestTogglesAndTeardown(t *testing.T) {
	e := NewEngine(Options{})
	assert.False(t, e.ToggleAudio(), "no session, nothing to mute")

	rec := &recorder{}
	require.NoError(t, e.StartAsInitiator(context.Background(), "room", false, rec.handle))
	rec.events = nil
	assert.True(t, e.ToggleAudio())
	assert.False(t, e.ToggleAudio())
	assert.False(t, e.ToggleVideo(), "audio-only call has no video to enable")

	e.Teardown()
	e.Teardown()
	assert.Equal(t, 1, e.Teardowns())
	assert.False(t, e.Active())

	e.SimulateClosed()
	assert.Empty(t, rec.events)
}

func TestVideoToggle(t *testing.T) {
	e := NewEngine(Options{})
	require.NoError(t, e.StartAsResponder(context.Background(), "room", true, func(domain.MediaEvent) {}))

	assert.False(t, e.ToggleVideo())
	assert.True(t, e.ToggleVideo())
}
