// Package memory is a PeerConnectionManager that negotiates nothing. It
// produces well-ordered placeholder descriptions and candidates so the call
// flow can run without capture devices or a network.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/port"
	"github.com/rs/zerolog/log"
)

type Options struct {
	// Candidates is how many candidates follow each local description.
	Candidates int
	// FailCapture makes every start fail as if no device were available.
	FailCapture error
	// AutoConnect reports a remote stream and connected as soon as both
	// descriptions are in place.
	AutoConnect bool
}

type session struct {
	roomID     domain.RoomID
	handler    port.MediaEventHandler
	initiator  bool
	wantsVideo bool
	remoteSet  bool
}

type Engine struct {
	opts Options

	mu           sync.Mutex
	session      *session
	muted        bool
	videoEnabled bool
	teardowns    int
	applied      []domain.NegotiationDatum
	rejected     []domain.NegotiationDatum
}

func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

func (e *Engine) StartAsInitiator(ctx context.Context, roomID domain.RoomID, wantsVideo bool, handler port.MediaEventHandler) error {
	if err := e.start(ctx, roomID, wantsVideo, true, handler); err != nil {
		return err
	}
	e.emit(handler, e.localDescription(roomID, domain.SignalOffer)...)
	return nil
}

func (e *Engine) StartAsResponder(ctx context.Context, roomID domain.RoomID, wantsVideo bool, handler port.MediaEventHandler) error {
	return e.start(ctx, roomID, wantsVideo, false, handler)
}

func (e *Engine) start(ctx context.Context, roomID domain.RoomID, wantsVideo, initiator bool, handler port.MediaEventHandler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.opts.FailCapture != nil {
		return fmt.Errorf("%w: %w", domain.ErrMediaUnavailable, e.opts.FailCapture)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = &session{
		roomID:     roomID,
		handler:    handler,
		initiator:  initiator,
		wantsVideo: wantsVideo,
	}
	e.muted = false
	e.videoEnabled = wantsVideo
	return nil
}

func (e *Engine) ApplyNegotiationDatum(datum domain.NegotiationDatum) {
	e.mu.Lock()
	s := e.session
	if s == nil || s.roomID != datum.RoomID || !e.acceptsLocked(s, datum) {
		e.rejected = append(e.rejected, datum)
		e.mu.Unlock()
		log.Debug().Str("room_id", datum.RoomID.String()).Str("kind", string(datum.Kind)).Msg("Negotiation datum rejected")
		return
	}
	e.applied = append(e.applied, datum)

	var events []domain.MediaEvent
	if datum.Kind != domain.SignalCandidate {
		s.remoteSet = true
		if !s.initiator {
			events = append(events, e.localDescription(s.roomID, domain.SignalAnswer)...)
		}
		if e.opts.AutoConnect {
			events = append(events, e.remoteStream(s), domain.MediaEvent{Kind: domain.EventConnected, RoomID: s.roomID})
		}
	}
	handler := s.handler
	e.mu.Unlock()

	e.emit(handler, events...)
}

func (e *Engine) acceptsLocked(s *session, datum domain.NegotiationDatum) bool {
	switch datum.Kind {
	case domain.SignalOffer:
		return !s.initiator && !s.remoteSet
	case domain.SignalAnswer:
		return s.initiator && !s.remoteSet
	case domain.SignalCandidate:
		return s.remoteSet
	}
	return false
}

func (e *Engine) ToggleAudio() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.muted = !e.muted
	}
	return e.muted
}

func (e *Engine) ToggleVideo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil && e.session.wantsVideo {
		e.videoEnabled = !e.videoEnabled
	}
	return e.videoEnabled
}

// Teardown never emits events.
func (e *Engine) Teardown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.teardowns++
	}
	e.session = nil
	e.muted = false
	e.videoEnabled = false
}

func (e *Engine) SimulateConnected() {
	e.simulate(func(s *session) []domain.MediaEvent {
		return []domain.MediaEvent{e.remoteStream(s), {Kind: domain.EventConnected, RoomID: s.roomID}}
	})
}

func (e *Engine) SimulateClosed() {
	e.simulate(func(s *session) []domain.MediaEvent {
		return []domain.MediaEvent{{Kind: domain.EventClosed, RoomID: s.roomID}}
	})
}

func (e *Engine) SimulateFailure(err error) {
	e.simulate(func(s *session) []domain.MediaEvent {
		return []domain.MediaEvent{{Kind: domain.EventFailed, RoomID: s.roomID, Err: err}}
	})
}

func (e *Engine) simulate(build func(s *session) []domain.MediaEvent) {
	e.mu.Lock()
	s := e.session
	if s == nil {
		e.mu.Unlock()
		return
	}
	events := build(s)
	handler := s.handler
	e.mu.Unlock()

	e.emit(handler, events...)
}

func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

func (e *Engine) RoomID() domain.RoomID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ""
	}
	return e.session.roomID
}

// Teardowns counts teardowns that actually released a session.
func (e *Engine) Teardowns() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.teardowns
}

func (e *Engine) Applied() []domain.NegotiationDatum {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.NegotiationDatum(nil), e.applied...)
}

func (e *Engine) Rejected() []domain.NegotiationDatum {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.NegotiationDatum(nil), e.rejected...)
}

func (e *Engine) localDescription(roomID domain.RoomID, kind domain.SignalKind) []domain.MediaEvent {
	n := e.opts.Candidates
	if n <= 0 {
		n = 1
	}
	events := []domain.MediaEvent{{
		Kind:   domain.EventOutgoingSignal,
		RoomID: roomID,
		Signal: domain.NegotiationDatum{RoomID: roomID, Kind: kind, Data: fmt.Sprintf("v=0 %s %s", kind, roomID)},
	}}
	for i := 0; i < n; i++ {
		events = append(events, domain.MediaEvent{
			Kind:   domain.EventOutgoingSignal,
			RoomID: roomID,
			Signal: domain.NegotiationDatum{
				RoomID: roomID,
				Kind:   domain.SignalCandidate,
				Data:   fmt.Sprintf(`{"candidate":"candidate:%d 1 udp 2130706431 127.0.0.1 %d typ host","sdpMid":"0","sdpMLineIndex":0}`, i, 50000+i),
			},
		})
	}
	return events
}

func (e *Engine) remoteStream(s *session) domain.MediaEvent {
	tracks := []string{"audio"}
	if s.wantsVideo {
		tracks = append(tracks, "video")
	}
	return domain.MediaEvent{
		Kind:   domain.EventRemoteStream,
		RoomID: s.roomID,
		Stream: domain.RemoteStream{StreamID: "memory-" + s.roomID.String(), Tracks: tracks},
	}
}

func (e *Engine) emit(handler port.MediaEventHandler, events ...domain.MediaEvent) {
	if handler == nil {
		return
	}
	for _, ev := range events {
		handler(ev)
	}
}
