package service

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mediamem "github.com/Wyydra/yacall/internal/adapter/driven/media/memory"
	persistmem "github.com/Wyydra/yacall/internal/adapter/driven/persistence/memory"
	transportmem "github.com/Wyydra/yacall/internal/adapter/driven/transport/memory"
	"github.com/Wyydra/yacall/internal/core/domain"
)

type party struct {
	svc   *CallService
	media *mediamem.Engine
}

func newParty(t *testing.T, bus *transportmem.Bus, clk clock.Clock, id domain.PeerID) *party {
	t.Helper()
	processed, err := NewProcessedMessages(context.Background(), persistmem.NewProcessedMessageRepository(), 0)
	require.NoError(t, err)

	media := mediamem.NewEngine(mediamem.Options{Candidates: 2, AutoConnect: true})
	endpoint := bus.Endpoint(id)
	svc := NewCallService(
		CallConfig{Self: id, Clock: clk},
		media,
		endpoint,
		NewHistoryRecorder(persistmem.NewHistoryRepository(), 0),
		processed,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go endpoint.Serve(ctx, svc.HandleMessage)
	t.Cleanup(func() {
		cancel()
		endpoint.Close()
		svc.Close()
	})
	return &party{svc: svc, media: media}
}

func statusOf(s *CallService) domain.CallStatus {
	state := s.State()
	if state.Call == nil {
		return ""
	}
	return state.Call.Status
}

func TestTwoPartiesConnectAndHangUp(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	bus := transportmem.NewBus(clk)
	alice := newParty(t, bus, clk, "alice")
	bob := newParty(t, bus, clk, "bob")

	call, err := alice.svc.StartCall(context.Background(), "bob", domain.MediaVideo)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return bob.svc.State().Invitation != nil }, time.Second, 5*time.Millisecond)
	inv := bob.svc.State().Invitation
	assert.Equal(t, call.RoomID, inv.RoomID)
	assert.Equal(t, domain.PeerID("alice"), inv.Caller)
	assert.Equal(t, domain.MediaVideo, inv.Kind)

	_, err = bob.svc.AcceptCall(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return statusOf(alice.svc) == domain.StatusConnected && statusOf(bob.svc) == domain.StatusConnected
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, alice.media.Rejected())
	assert.Empty(t, bob.media.Rejected())
	assert.True(t, bob.svc.State().RemoteStream.HasKind("video"))

	require.NoError(t, alice.svc.EndCall(context.Background()))

	require.Eventually(t, func() bool { return bob.svc.State().Idle() }, time.Second, 5*time.Millisecond)
	assert.True(t, alice.svc.State().Idle())

	bobHistory, err := bob.svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, bobHistory, 1)
	assert.Equal(t, domain.StatusEnded, bobHistory[0].Status)
	assert.Equal(t, domain.DirectionIncoming, bobHistory[0].Direction)

	aliceHistory, err := alice.svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, aliceHistory, 1)
	assert.Equal(t, domain.DirectionOutgoing, aliceHistory[0].Direction)
}

func TestCallerHangsUpWhileRinging(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	bus := transportmem.NewBus(clk)
	alice := newParty(t, bus, clk, "alice")
	bob := newParty(t, bus, clk, "bob")

	_, err := alice.svc.StartCall(context.Background(), "bob", domain.MediaAudio)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return bob.svc.State().Invitation != nil }, time.Second, 5*time.Millisecond)

	require.NoError(t, alice.svc.EndCall(context.Background()))

	require.Eventually(t, func() bool { return bob.svc.State().Idle() }, time.Second, 5*time.Millisecond)
	history, err := bob.svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StatusMissed, history[0].Status)
}

func TestBusyCalleeDeclinesSecondCaller(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	bus := transportmem.NewBus(clk)
	alice := newParty(t, bus, clk, "alice")
	bob := newParty(t, bus, clk, "bob")
	carol := newParty(t, bus, clk, "carol")

	_, err := alice.svc.StartCall(context.Background(), "bob", domain.MediaAudio)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return bob.svc.State().Invitation != nil }, time.Second, 5*time.Millisecond)

	_, err = carol.svc.StartCall(context.Background(), "bob", domain.MediaAudio)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return carol.svc.State().Idle() }, time.Second, 5*time.Millisecond)
	history, err := carol.svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StatusDeclined, history[0].Status)
	assert.Equal(t, domain.PeerID("alice"), bob.svc.State().Invitation.Caller)
}
