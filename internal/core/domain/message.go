package domain

import (
	"errors"
	"time"
)

// Message is one inbound payload delivered by the messaging transport, for
// any conversation.
type Message struct {
	ID       MessageID
	SenderID PeerID
	Content  string
	SentAt   time.Time
}

func NewMessage(id MessageID, senderID PeerID, content string, sentAt time.Time) (*Message, error) {
	if senderID == "" {
		return nil, errors.New("message sender cannot be empty")
	}
	if content == "" {
		return nil, errors.New("message content cannot be empty")
	}
	return &Message{
		ID:       id,
		SenderID: senderID,
		Content:  content,
		SentAt:   sentAt,
	}, nil
}
