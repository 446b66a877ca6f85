package domain

// MediaEventKind is the closed set of events a negotiation engine reports.
type MediaEventKind string

const (
	EventOutgoingSignal MediaEventKind = "outgoing-signal"
	EventRemoteStream   MediaEventKind = "remote-stream"
	EventConnected      MediaEventKind = "connected"
	EventClosed         MediaEventKind = "closed"
	EventFailed         MediaEventKind = "failed"
)

// MediaEvent carries one engine event for a room. Signal is set for
// EventOutgoingSignal, Stream for EventRemoteStream and Err for EventFailed.
type MediaEvent struct {
	Kind   MediaEventKind
	RoomID RoomID
	Signal NegotiationDatum
	Stream RemoteStream
	Err    error
}

// RemoteStream describes media received from the peer.
type RemoteStream struct {
	StreamID string   `json:"stream_id"`
	Tracks   []string `json:"tracks"`
}

func (s RemoteStream) HasKind(kind string) bool {
	for _, t := range s.Tracks {
		if t == kind {
			return true
		}
	}
	return false
}
