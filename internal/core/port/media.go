package port

import (
	"context"

	"github.com/Wyydra/yacall/internal/core/domain"
)

// MediaEventHandler receives engine events in emission order.
type MediaEventHandler func(ev domain.MediaEvent)

// PeerConnectionManager owns at most one negotiation engine and the local
// capture feeding it.
type PeerConnectionManager interface {
	// StartAsInitiator acquires local media and creates an offering engine.
	// The first outgoing signal it emits is the offer.
	StartAsInitiator(ctx context.Context, roomID domain.RoomID, wantsVideo bool, handler MediaEventHandler) error
	// StartAsResponder acquires local media and creates an answering engine
	// that waits for an inbound offer.
	StartAsResponder(ctx context.Context, roomID domain.RoomID, wantsVideo bool, handler MediaEventHandler) error
	// ApplyNegotiationDatum feeds inbound data to the engine. Data for another
	// room, or when no engine exists, is dropped.
	ApplyNegotiationDatum(datum domain.NegotiationDatum)
	ToggleAudio() (muted bool)
	ToggleVideo() (videoEnabled bool)
	// Teardown releases everything. Safe to call at any time, any number of times.
	Teardown()
}
