package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHistoryEntryDuration(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	call := CallSession{RoomID: "r1", Peer: "bob", Direction: DirectionOutgoing, Kind: MediaVideo, StartedAt: start}

	missed := NewHistoryEntry(call, StatusMissed, start.Add(time.Minute))
	assert.Nil(t, missed.Duration)
	assert.Equal(t, StatusMissed, missed.Status)
	require.NotNil(t, missed.EndedAt)

	connected := start.Add(5 * time.Second)
	call.ConnectedAt = &connected
	ended := NewHistoryEntry(call, StatusEnded, start.Add(65*time.Second))
	require.NotNil(t, ended.Duration)
	assert.Equal(t, time.Minute, *ended.Duration)
	assert.NotEqual(t, missed.ID, ended.ID)
}

func TestInvitationHistoryEntry(t *testing.T) {
	received := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	inv := IncomingInvitation{RoomID: "r1", Caller: "alice", Kind: MediaAudio, ReceivedAt: received}

	entry := NewInvitationHistoryEntry(inv, StatusDeclined, received.Add(3*time.Second))

	assert.Equal(t, DirectionIncoming, entry.Direction)
	assert.Equal(t, PeerID("alice"), entry.Peer)
	assert.Equal(t, received, entry.StartedAt)
	assert.Nil(t, entry.Duration)
}

func TestHistoryIDMarshalsAsString(t *testing.T) {
	entry := CallHistoryEntry{ID: NewHistoryID(), RoomID: "r1", Status: StatusMissed}

	b, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded CallHistoryEntry
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, entry.ID, decoded.ID)
	assert.Contains(t, string(b), `"id":"`+entry.ID.String()+`"`)
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []CallStatus{StatusEnded, StatusDeclined, StatusMissed, StatusFailed} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []CallStatus{StatusRinging, StatusConnecting, StatusConnected} {
		assert.False(t, s.Terminal(), s)
	}
}
