package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wyydra/yacall/internal/core/domain"
)

func entry(room string) domain.CallHistoryEntry {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	call := domain.CallSession{
		RoomID:    domain.RoomID(room),
		Peer:      "bob",
		Direction: domain.DirectionIncoming,
		Kind:      domain.MediaAudio,
		StartedAt: started,
	}
	return domain.NewHistoryEntry(call, domain.StatusMissed, started.Add(time.Minute))
}

func TestHistoryRepositoryMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository()

	for _, room := range []string{"r1", "r2", "r3"} {
		require.NoError(t, repo.Save(ctx, entry(room)))
	}
	require.NoError(t, repo.Trim(ctx, 2))

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.RoomID("r3"), got[0].RoomID)
	assert.Equal(t, domain.RoomID("r2"), got[1].RoomID)

	got[0].Peer = "mallory"
	again, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PeerID("bob"), again[0].Peer)
}

func TestProcessedMessageRepositoryCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewProcessedMessageRepository()

	ids := []domain.MessageID{"a", "b"}
	require.NoError(t, repo.Save(ctx, ids))
	ids[0] = "z"

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.MessageID{"a", "b"}, got)
}
