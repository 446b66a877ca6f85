package ws

import "github.com/Wyydra/yacall/internal/core/domain"

type Client interface {
	ID() string
	SendState(state domain.CallState) error
	Close() error
}
