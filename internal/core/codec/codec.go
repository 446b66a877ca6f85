// Package codec frames call signals inside the opaque text payloads carried
// by the messaging transport. Every function is pure.
package codec

import (
	"encoding/json"
	"strings"

	"github.com/Wyydra/yacall/internal/core/domain"
)

const (
	typeInvite   = "call-invite"
	typeResponse = "call-response"
	typeSignal   = "call-signal"
)

type envelope struct {
	Type   string           `json:"type"`
	RoomID string           `json:"room_id"`
	Kind   string           `json:"kind,omitempty"`
	Action string           `json:"action,omitempty"`
	Signal *negotiationWire `json:"signal,omitempty"`
}

type negotiationWire struct {
	Kind string `json:"kind"`
	Data string `json:"data"`
}

func EncodeInvite(roomID domain.RoomID, kind domain.MediaKind) string {
	return encode(envelope{Type: typeInvite, RoomID: roomID.String(), Kind: string(kind)})
}

func EncodeResponse(roomID domain.RoomID, action domain.ResponseAction) string {
	return encode(envelope{Type: typeResponse, RoomID: roomID.String(), Action: string(action)})
}

func EncodeNegotiationDatum(datum domain.NegotiationDatum) string {
	return encode(envelope{
		Type:   typeSignal,
		RoomID: datum.RoomID.String(),
		Signal: &negotiationWire{Kind: string(datum.Kind), Data: datum.Data},
	})
}

// Encode frames any recognized signal. Unrecognized encodes to "".
func Encode(sig domain.Signal) string {
	switch s := sig.(type) {
	case domain.Invite:
		return EncodeInvite(s.RoomID, s.Kind)
	case domain.Response:
		return EncodeResponse(s.RoomID, s.Action)
	case domain.NegotiationDatum:
		return EncodeNegotiationDatum(s)
	}
	return ""
}

func encode(e envelope) string {
	// envelope only holds strings, Marshal cannot fail
	b, _ := json.Marshal(e)
	return string(b)
}

// Classify recognizes a call signal in payload. Anything else, including
// malformed JSON or a known type with a missing field, is Unrecognized.
func Classify(payload string) domain.Signal {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "{") || !strings.Contains(trimmed, `"call-`) {
		return domain.Unrecognized{}
	}

	var e envelope
	if err := json.Unmarshal([]byte(trimmed), &e); err != nil {
		return domain.Unrecognized{}
	}
	if e.RoomID == "" {
		return domain.Unrecognized{}
	}
	roomID := domain.RoomID(e.RoomID)

	switch e.Type {
	case typeInvite:
		kind := domain.MediaKind(e.Kind)
		if !kind.Valid() {
			return domain.Unrecognized{}
		}
		return domain.Invite{RoomID: roomID, Kind: kind}

	case typeResponse:
		action := domain.ResponseAction(e.Action)
		if !action.Valid() {
			return domain.Unrecognized{}
		}
		return domain.Response{RoomID: roomID, Action: action}

	case typeSignal:
		if e.Signal == nil || e.Signal.Data == "" {
			return domain.Unrecognized{}
		}
		kind := domain.SignalKind(e.Signal.Kind)
		if !kind.Valid() {
			return domain.Unrecognized{}
		}
		return domain.NegotiationDatum{RoomID: roomID, Kind: kind, Data: e.Signal.Data}
	}
	return domain.Unrecognized{}
}
