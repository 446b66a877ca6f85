package domain

import "errors"

var (
	ErrCallInProgress   = errors.New("a call is already in progress")
	ErrNoInvitation     = errors.New("no pending invitation")
	ErrNoActiveCall     = errors.New("no active call")
	ErrMediaUnavailable = errors.New("local media unavailable")
	ErrSetupAborted     = errors.New("call setup aborted")
	ErrTransport        = errors.New("signaling transport failure")
	ErrInvalidPeer      = errors.New("invalid peer")
	ErrInvalidMediaKind = errors.New("invalid media kind")
)
