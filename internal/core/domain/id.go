package domain

import (
	"github.com/google/uuid"
)

// PeerID is the stable identity key of a party on the messaging transport.
type PeerID string

func (id PeerID) String() string {
	return string(id)
}

// RoomID correlates every signal of one call attempt. Generated by the caller.
type RoomID string

func NewRoomID() RoomID {
	return RoomID(uuid.New().String())
}

func (id RoomID) String() string {
	return string(id)
}

// MessageID is the identifier the transport assigned to an inbound message.
type MessageID string

func (id MessageID) String() string {
	return string(id)
}

type HistoryID uuid.UUID

func NewHistoryID() HistoryID {
	return HistoryID(uuid.New())
}

func ParseHistoryID(s string) (HistoryID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return HistoryID{}, err
	}
	return HistoryID(id), nil
}

func (id HistoryID) String() string {
	return uuid.UUID(id).String()
}

func (id HistoryID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *HistoryID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
