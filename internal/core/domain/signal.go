package domain

// SignalKind tags the negotiation data exchanged between two engines.
type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "candidate"
)

func (k SignalKind) Valid() bool {
	switch k {
	case SignalOffer, SignalAnswer, SignalCandidate:
		return true
	}
	return false
}

// ResponseAction is what a call response tells the other side.
type ResponseAction string

const (
	ActionAccept  ResponseAction = "accept"
	ActionDecline ResponseAction = "decline"
	ActionEnd     ResponseAction = "end"
)

func (a ResponseAction) Valid() bool {
	switch a {
	case ActionAccept, ActionDecline, ActionEnd:
		return true
	}
	return false
}

// Signal is the closed set of call signals carried inside transport
// payloads. Only the codec produces values of this type.
type Signal interface {
	Room() RoomID
	isSignal()
}

type Invite struct {
	RoomID RoomID
	Kind   MediaKind
}

type Response struct {
	RoomID RoomID
	Action ResponseAction
}

// NegotiationDatum is one offer, answer or connectivity candidate. Data is
// the SDP for offers and answers and the JSON candidate init otherwise.
type NegotiationDatum struct {
	RoomID RoomID
	Kind   SignalKind
	Data   string
}

// Unrecognized is any payload that is not a call signal. Most transport
// traffic is ordinary conversation text and ends up here.
type Unrecognized struct{}

func (s Invite) Room() RoomID           { return s.RoomID }
func (s Response) Room() RoomID         { return s.RoomID }
func (s NegotiationDatum) Room() RoomID { return s.RoomID }
func (Unrecognized) Room() RoomID       { return "" }

func (Invite) isSignal()           {}
func (Response) isSignal()         {}
func (NegotiationDatum) isSignal() {}
func (Unrecognized) isSignal()     {}
