package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	persistmem "github.com/Wyydra/yacall/internal/adapter/driven/persistence/memory"
	"github.com/Wyydra/yacall/internal/core/domain"
)

func TestHistoryRecorderKeepsMostRecentWithinLimit(t *testing.T) {
	ctx := context.Background()
	recorder := NewHistoryRecorder(persistmem.NewHistoryRepository(), 3)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		call := domain.CallSession{
			RoomID:    domain.RoomID(string(rune('a' + i))),
			Peer:      "bob",
			Direction: domain.DirectionOutgoing,
			Kind:      domain.MediaAudio,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, recorder.Append(ctx, domain.NewHistoryEntry(call, domain.StatusMissed, call.StartedAt.Add(time.Minute))))
	}

	entries, err := recorder.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.RoomID("e"), entries[0].RoomID)
	assert.Equal(t, domain.RoomID("d"), entries[1].RoomID)
	assert.Equal(t, domain.RoomID("c"), entries[2].RoomID)
}

func TestHistoryRecorderDefaultLimit(t *testing.T) {
	ctx := context.Background()
	recorder := NewHistoryRecorder(persistmem.NewHistoryRepository(), 0)

	for i := 0; i < DefaultHistoryLimit+7; i++ {
		call := domain.CallSession{RoomID: domain.NewRoomID(), Peer: "bob", Direction: domain.DirectionIncoming, Kind: domain.MediaAudio}
		require.NoError(t, recorder.Append(ctx, domain.NewHistoryEntry(call, domain.StatusDeclined, time.Now())))
	}

	entries, err := recorder.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, DefaultHistoryLimit)
}

func TestHistoryListIsACopy(t *testing.T) {
	ctx := context.Background()
	recorder := NewHistoryRecorder(persistmem.NewHistoryRepository(), 0)
	call := domain.CallSession{RoomID: "r1", Peer: "bob", Direction: domain.DirectionIncoming, Kind: domain.MediaAudio}
	require.NoError(t, recorder.Append(ctx, domain.NewHistoryEntry(call, domain.StatusMissed, time.Now())))

	entries, err := recorder.List(ctx)
	require.NoError(t, err)
	entries[0].Peer = "mallory"

	again, err := recorder.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PeerID("bob"), again[0].Peer)
}

func TestHistoryRecorderRejectsLiveStatus(t *testing.T) {
	ctx := context.Background()
	repo := persistmem.NewHistoryRepository()
	recorder := NewHistoryRecorder(repo, 0)
	call := domain.CallSession{
		RoomID:    "r1",
		Peer:      "bob",
		Direction: domain.DirectionOutgoing,
		Kind:      domain.MediaAudio,
		StartedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	err := recorder.Append(ctx, domain.NewHistoryEntry(call, domain.StatusConnecting, call.StartedAt))
	assert.ErrorIs(t, err, ErrNotTerminal)

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
