package domain

import "time"

type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

func (k MediaKind) Valid() bool {
	return k == MediaAudio || k == MediaVideo
}

func (k MediaKind) WantsVideo() bool {
	return k == MediaVideo
}

type CallStatus string

const (
	StatusRinging    CallStatus = "ringing"
	StatusConnecting CallStatus = "connecting"
	StatusConnected  CallStatus = "connected"
	StatusEnded      CallStatus = "ended"
	StatusDeclined   CallStatus = "declined"
	StatusMissed     CallStatus = "missed"
	StatusFailed     CallStatus = "failed"
)

// Terminal reports whether the status ends a call. A terminal status is
// recorded to history and never observed on a live session.
func (s CallStatus) Terminal() bool {
	switch s {
	case StatusEnded, StatusDeclined, StatusMissed, StatusFailed:
		return true
	}
	return false
}

// CallSession is the single active call.
type CallSession struct {
	RoomID      RoomID     `json:"room_id"`
	Peer        PeerID     `json:"peer"`
	Direction   Direction  `json:"direction"`
	Kind        MediaKind  `json:"kind"`
	Status      CallStatus `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// IncomingInvitation is an invite waiting for the local user to decide.
// It never coexists with a CallSession.
type IncomingInvitation struct {
	RoomID     RoomID    `json:"room_id"`
	Caller     PeerID    `json:"caller"`
	Kind       MediaKind `json:"kind"`
	ReceivedAt time.Time `json:"received_at"`
}

// CallState is the observable snapshot handed to the UI layer.
type CallState struct {
	Call         *CallSession        `json:"call"`
	Invitation   *IncomingInvitation `json:"invitation"`
	Muted        bool                `json:"muted"`
	VideoEnabled bool                `json:"video_enabled"`
	RemoteStream *RemoteStream       `json:"remote_stream,omitempty"`
}

// Idle reports whether neither a call nor an invitation is present.
func (s CallState) Idle() bool {
	return s.Call == nil && s.Invitation == nil
}
