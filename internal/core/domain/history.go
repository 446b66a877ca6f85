package domain

import "time"

// CallHistoryEntry is written once, at call termination, and never mutated.
type CallHistoryEntry struct {
	ID        HistoryID      `json:"id"`
	RoomID    RoomID         `json:"room_id"`
	Peer      PeerID         `json:"peer"`
	Direction Direction      `json:"direction"`
	Kind      MediaKind      `json:"kind"`
	Status    CallStatus     `json:"status"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
	Duration  *time.Duration `json:"duration,omitempty"`
}

// NewHistoryEntry builds the entry for a session that reached status at endedAt.
// Duration is only set when the call was connected.
func NewHistoryEntry(call CallSession, status CallStatus, endedAt time.Time) CallHistoryEntry {
	entry := CallHistoryEntry{
		ID:        NewHistoryID(),
		RoomID:    call.RoomID,
		Peer:      call.Peer,
		Direction: call.Direction,
		Kind:      call.Kind,
		Status:    status,
		StartedAt: call.StartedAt,
		EndedAt:   &endedAt,
	}
	if call.ConnectedAt != nil {
		d := endedAt.Sub(*call.ConnectedAt)
		if d < 0 {
			d = 0
		}
		entry.Duration = &d
	}
	return entry
}

// NewInvitationHistoryEntry records an invitation that never became a call.
func NewInvitationHistoryEntry(inv IncomingInvitation, status CallStatus, endedAt time.Time) CallHistoryEntry {
	return CallHistoryEntry{
		ID:        NewHistoryID(),
		RoomID:    inv.RoomID,
		Peer:      inv.Caller,
		Direction: DirectionIncoming,
		Kind:      inv.Kind,
		Status:    status,
		StartedAt: inv.ReceivedAt,
		EndedAt:   &endedAt,
	}
}
