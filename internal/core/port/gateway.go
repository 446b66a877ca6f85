package port

import (
	"context"

	"github.com/Wyydra/yacall/internal/core/domain"
)

// MessageTransport is the encrypted messaging channel signals travel over.
type MessageTransport interface {
	SendMessage(ctx context.Context, to domain.PeerID, content string) error
}

// CallObserver is notified with a fresh snapshot after every state change.
type CallObserver interface {
	CallStateChanged(state domain.CallState)
}

// MessageHandler consumes inbound transport messages in arrival order.
type MessageHandler func(ctx context.Context, msg domain.Message)
