package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Wyydra/yacall/internal/core/codec"
	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/port"
	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRingTimeout     = 60 * time.Second
	DefaultInviteFreshness = 2 * time.Minute
	DefaultSendTimeout     = 10 * time.Second
)

type CallConfig struct {
	// Self is the local identity. Messages it sent are never acted upon.
	Self            domain.PeerID
	RingTimeout     time.Duration
	InviteFreshness time.Duration
	SendTimeout     time.Duration
	Clock           clock.Clock
}

func (c *CallConfig) setDefaults() {
	if c.RingTimeout <= 0 {
		c.RingTimeout = DefaultRingTimeout
	}
	if c.InviteFreshness <= 0 {
		c.InviteFreshness = DefaultInviteFreshness
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
}

// pendingSetup is a start or accept whose media acquisition is in flight.
// While it exists the machine is busy.
type pendingSetup struct {
	roomID    domain.RoomID
	peer      domain.PeerID
	direction domain.Direction
	kind      domain.MediaKind
	cancel    context.CancelFunc
	held      []domain.NegotiationDatum

	aborted     bool
	abortStatus domain.CallStatus
}

type outboundMessage struct {
	to      domain.PeerID
	roomID  domain.RoomID
	content string
	// critical sends fail the call they belong to when they cannot be delivered
	critical bool
}

// CallService is the call signaling state machine. It holds at most one
// call and at most one pending invitation, and is the only writer of both.
type CallService struct {
	media     port.PeerConnectionManager
	transport port.MessageTransport
	history   *HistoryRecorder
	processed *ProcessedMessages
	cfg       CallConfig
	clock     clock.Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	call         *domain.CallSession
	invitation   *domain.IncomingInvitation
	setup        *pendingSetup
	timer        *clock.Timer
	held         []domain.NegotiationDatum
	muted        bool
	videoEnabled bool
	remote       *domain.RemoteStream
	outbox       []outboundMessage
	observers    []port.CallObserver

	// sendMu serializes draining of the outbox so payloads leave in the
	// order they were queued.
	sendMu sync.Mutex
	// notifyMu serializes observer delivery so the last snapshot an
	// observer sees is the current state.
	notifyMu sync.Mutex
}

func NewCallService(
	cfg CallConfig,
	media port.PeerConnectionManager,
	transport port.MessageTransport,
	history *HistoryRecorder,
	processed *ProcessedMessages,
) *CallService {
	cfg.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &CallService{
		media:     media,
		transport: transport,
		history:   history,
		processed: processed,
		cfg:       cfg,
		clock:     cfg.Clock,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *CallService) Subscribe(o port.CallObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Close releases every resource. The service must not be used afterwards.
func (s *CallService) Close() {
	s.ForceReset()
	s.cancel()
}

func (s *CallService) State() domain.CallState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *CallService) History(ctx context.Context) ([]domain.CallHistoryEntry, error) {
	return s.history.List(ctx)
}

// StartCall places an outgoing call. It returns once local media is
// acquired and the invite has been handed to the transport.
func (s *CallService) StartCall(ctx context.Context, peer domain.PeerID, kind domain.MediaKind) (domain.CallSession, error) {
	if peer == "" || peer == s.cfg.Self {
		return domain.CallSession{}, domain.ErrInvalidPeer
	}
	if !kind.Valid() {
		return domain.CallSession{}, domain.ErrInvalidMediaKind
	}

	s.mu.Lock()
	if !s.idleLocked() {
		s.mu.Unlock()
		return domain.CallSession{}, domain.ErrCallInProgress
	}
	roomID := domain.NewRoomID()
	setupCtx, cancel := context.WithCancel(ctx)
	setup := &pendingSetup{
		roomID:    roomID,
		peer:      peer,
		direction: domain.DirectionOutgoing,
		kind:      kind,
		cancel:    cancel,
	}
	s.setup = setup
	s.mu.Unlock()

	l := log.With().Str("room_id", roomID.String()).Str("peer_id", peer.String()).Logger()
	l.Info().Str("kind", string(kind)).Msg("Starting call")

	err := s.media.StartAsInitiator(setupCtx, roomID, kind.WantsVideo(), s.mediaHandler())
	cancel()

	s.mu.Lock()
	if s.setup == setup {
		s.setup = nil
	}
	if setup.aborted {
		s.releaseAbortedLocked()
		s.mu.Unlock()
		s.notify()
		l.Info().Msg("Call setup aborted")
		return domain.CallSession{}, domain.ErrSetupAborted
	}
	if err != nil {
		s.media.Teardown()
		s.mu.Unlock()
		s.notify()
		l.Error().Err(err).Msg("Failed to start call")
		return domain.CallSession{}, fmt.Errorf("start call: %w", err)
	}

	call := &domain.CallSession{
		RoomID:    roomID,
		Peer:      peer,
		Direction: domain.DirectionOutgoing,
		Kind:      kind,
		Status:    domain.StatusRinging,
		StartedAt: s.clock.Now(),
	}
	s.call = call
	s.held = setup.held
	s.muted = false
	s.videoEnabled = kind.WantsVideo()
	s.armTimerLocked(roomID, s.outgoingTimedOut)
	s.enqueueLocked(outboundMessage{
		to:       peer,
		roomID:   roomID,
		content:  codec.EncodeInvite(roomID, kind),
		critical: true,
	})
	snapshot := *call
	s.mu.Unlock()

	s.notify()
	if err := s.flush(); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

// AcceptCall answers the pending invitation.
func (s *CallService) AcceptCall(ctx context.Context) (domain.CallSession, error) {
	s.mu.Lock()
	if s.invitation == nil {
		s.mu.Unlock()
		return domain.CallSession{}, domain.ErrNoInvitation
	}
	if s.setup != nil || s.call != nil {
		s.mu.Unlock()
		return domain.CallSession{}, domain.ErrCallInProgress
	}
	inv := *s.invitation
	s.stopTimerLocked()
	setupCtx, cancel := context.WithCancel(ctx)
	setup := &pendingSetup{
		roomID:    inv.RoomID,
		peer:      inv.Caller,
		direction: domain.DirectionIncoming,
		kind:      inv.Kind,
		cancel:    cancel,
	}
	s.setup = setup
	s.mu.Unlock()

	l := log.With().Str("room_id", inv.RoomID.String()).Str("peer_id", inv.Caller.String()).Logger()
	l.Info().Msg("Accepting call")

	err := s.media.StartAsResponder(setupCtx, inv.RoomID, inv.Kind.WantsVideo(), s.mediaHandler())
	cancel()

	s.mu.Lock()
	if s.setup == setup {
		s.setup = nil
	}
	if setup.aborted {
		if s.invitation != nil && s.invitation.RoomID == inv.RoomID {
			s.invitation = nil
		}
		if setup.abortStatus != "" {
			s.recordLocked(domain.NewInvitationHistoryEntry(inv, setup.abortStatus, s.clock.Now()))
		}
		s.releaseAbortedLocked()
		s.mu.Unlock()
		s.notify()
		s.flush()
		l.Info().Msg("Call accept aborted")
		return domain.CallSession{}, domain.ErrSetupAborted
	}
	s.invitation = nil
	if err != nil {
		s.media.Teardown()
		s.recordLocked(domain.NewInvitationHistoryEntry(inv, domain.StatusFailed, s.clock.Now()))
		s.enqueueLocked(outboundMessage{
			to:      inv.Caller,
			roomID:  inv.RoomID,
			content: codec.EncodeResponse(inv.RoomID, domain.ActionDecline),
		})
		s.mu.Unlock()
		s.notify()
		s.flush()
		l.Error().Err(err).Msg("Failed to accept call")
		return domain.CallSession{}, fmt.Errorf("accept call: %w", err)
	}

	call := &domain.CallSession{
		RoomID:    inv.RoomID,
		Peer:      inv.Caller,
		Direction: domain.DirectionIncoming,
		Kind:      inv.Kind,
		Status:    domain.StatusConnecting,
		StartedAt: inv.ReceivedAt,
	}
	s.call = call
	s.muted = false
	s.videoEnabled = inv.Kind.WantsVideo()
	s.enqueueLocked(outboundMessage{
		to:       inv.Caller,
		roomID:   inv.RoomID,
		content:  codec.EncodeResponse(inv.RoomID, domain.ActionAccept),
		critical: true,
	})
	for _, d := range setup.held {
		s.enqueueSignalLocked(call.Peer, d)
	}
	snapshot := *call
	s.mu.Unlock()

	s.notify()
	if err := s.flush(); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

// DeclineCall rejects the pending invitation. No call session is created.
func (s *CallService) DeclineCall(ctx context.Context) error {
	s.mu.Lock()
	if s.invitation == nil {
		s.mu.Unlock()
		return domain.ErrNoInvitation
	}
	if s.setup != nil {
		s.mu.Unlock()
		return domain.ErrCallInProgress
	}
	inv := *s.invitation
	s.invitation = nil
	s.stopTimerLocked()
	s.recordLocked(domain.NewInvitationHistoryEntry(inv, domain.StatusDeclined, s.clock.Now()))
	s.enqueueLocked(outboundMessage{
		to:      inv.Caller,
		roomID:  inv.RoomID,
		content: codec.EncodeResponse(inv.RoomID, domain.ActionDecline),
	})
	s.mu.Unlock()

	log.Info().Str("room_id", inv.RoomID.String()).Str("peer_id", inv.Caller.String()).Msg("Call declined")
	s.notify()
	s.flush()
	return nil
}

// EndCall hangs up. It interrupts a start or accept still acquiring media,
// and declines a pending invitation.
func (s *CallService) EndCall(ctx context.Context) error {
	s.mu.Lock()
	if setup := s.setup; setup != nil {
		if !setup.aborted {
			setup.aborted = true
			setup.cancel()
			if setup.direction == domain.DirectionIncoming {
				setup.abortStatus = domain.StatusDeclined
				s.enqueueLocked(outboundMessage{
					to:      setup.peer,
					roomID:  setup.roomID,
					content: codec.EncodeResponse(setup.roomID, domain.ActionDecline),
				})
			}
			s.media.Teardown()
		}
		s.mu.Unlock()
		s.notify()
		s.flush()
		return nil
	}

	if s.call == nil {
		hasInvitation := s.invitation != nil
		s.mu.Unlock()
		if hasInvitation {
			return s.DeclineCall(ctx)
		}
		return domain.ErrNoActiveCall
	}

	call := s.call
	s.enqueueLocked(outboundMessage{
		to:      call.Peer,
		roomID:  call.RoomID,
		content: codec.EncodeResponse(call.RoomID, domain.ActionEnd),
	})
	s.finishLocked(domain.StatusEnded)
	s.mu.Unlock()

	log.Info().Str("room_id", call.RoomID.String()).Msg("Call ended locally")
	s.notify()
	s.flush()
	return nil
}

func (s *CallService) ToggleMute() bool {
	s.mu.Lock()
	if s.call == nil {
		muted := s.muted
		s.mu.Unlock()
		return muted
	}
	s.muted = s.media.ToggleAudio()
	muted := s.muted
	s.mu.Unlock()

	s.notify()
	return muted
}

func (s *CallService) ToggleVideo() bool {
	s.mu.Lock()
	if s.call == nil {
		enabled := s.videoEnabled
		s.mu.Unlock()
		return enabled
	}
	s.videoEnabled = s.media.ToggleVideo()
	enabled := s.videoEnabled
	s.mu.Unlock()

	s.notify()
	return enabled
}

// ForceReset tears everything down and forgets all in-memory call state
// without recording history or notifying the peer.
func (s *CallService) ForceReset() {
	s.mu.Lock()
	if s.setup != nil {
		s.setup.aborted = true
		s.setup.abortStatus = ""
		s.setup.cancel()
		s.setup = nil
	}
	s.stopTimerLocked()
	s.media.Teardown()
	s.call = nil
	s.invitation = nil
	s.held = nil
	s.remote = nil
	s.outbox = nil
	s.muted = false
	s.videoEnabled = false
	s.mu.Unlock()

	log.Warn().Msg("Call state force reset")
	s.notify()
}

// HandleMessage is fed every inbound transport message. Anything that is
// not a call signal is ignored.
func (s *CallService) HandleMessage(ctx context.Context, msg domain.Message) {
	if msg.SenderID == s.cfg.Self {
		return
	}

	switch sig := codec.Classify(msg.Content).(type) {
	case domain.Invite:
		if !s.processed.MarkFirst(ctx, msg.ID) {
			log.Debug().Str("message_id", msg.ID.String()).Msg("Duplicate invite ignored")
			return
		}
		s.handleInvite(msg, sig)
	case domain.Response:
		if !s.processed.MarkFirst(ctx, msg.ID) {
			log.Debug().Str("message_id", msg.ID.String()).Msg("Duplicate response ignored")
			return
		}
		s.handleResponse(msg, sig)
	case domain.NegotiationDatum:
		s.handleNegotiation(msg, sig)
	}
}

func (s *CallService) handleInvite(msg domain.Message, inv domain.Invite) {
	l := log.With().Str("room_id", inv.RoomID.String()).Str("peer_id", msg.SenderID.String()).Logger()

	now := s.clock.Now()
	if !msg.SentAt.IsZero() && now.Sub(msg.SentAt) > s.cfg.InviteFreshness {
		l.Debug().Time("sent_at", msg.SentAt).Msg("Stale invite discarded")
		return
	}

	s.mu.Lock()
	if s.invitation != nil && s.setup == nil && s.invitation.Caller == msg.SenderID {
		if s.invitation.RoomID == inv.RoomID {
			s.mu.Unlock()
			return
		}
		l.Info().Str("superseded_room_id", s.invitation.RoomID.String()).Msg("Invitation superseded")
		s.stopTimerLocked()
		s.invitation = nil
	}

	if !s.idleLocked() {
		s.enqueueLocked(outboundMessage{
			to:      msg.SenderID,
			roomID:  inv.RoomID,
			content: codec.EncodeResponse(inv.RoomID, domain.ActionDecline),
		})
		s.mu.Unlock()
		l.Info().Msg("Busy, invite auto-declined")
		s.flush()
		return
	}

	s.invitation = &domain.IncomingInvitation{
		RoomID:     inv.RoomID,
		Caller:     msg.SenderID,
		Kind:       inv.Kind,
		ReceivedAt: now,
	}
	s.armTimerLocked(inv.RoomID, s.invitationTimedOut)
	s.mu.Unlock()

	l.Info().Str("kind", string(inv.Kind)).Msg("Incoming call")
	s.notify()
}

func (s *CallService) handleResponse(msg domain.Message, resp domain.Response) {
	l := log.With().Str("room_id", resp.RoomID.String()).Str("action", string(resp.Action)).Logger()

	s.mu.Lock()
	if setup := s.setup; setup != nil && setup.roomID == resp.RoomID && setup.peer == msg.SenderID {
		if resp.Action == domain.ActionEnd && setup.direction == domain.DirectionIncoming && !setup.aborted {
			setup.aborted = true
			setup.abortStatus = domain.StatusMissed
			setup.cancel()
			s.media.Teardown()
			l.Info().Msg("Caller hung up during accept")
		}
		s.mu.Unlock()
		return
	}

	if inv := s.invitation; inv != nil && inv.RoomID == resp.RoomID && inv.Caller == msg.SenderID {
		if resp.Action != domain.ActionEnd {
			s.mu.Unlock()
			l.Debug().Msg("Unexpected response for invitation ignored")
			return
		}
		s.invitation = nil
		s.stopTimerLocked()
		s.recordLocked(domain.NewInvitationHistoryEntry(*inv, domain.StatusMissed, s.clock.Now()))
		s.mu.Unlock()
		l.Info().Msg("Caller cancelled invitation")
		s.notify()
		return
	}

	call := s.call
	if call == nil || call.RoomID != resp.RoomID || call.Peer != msg.SenderID {
		s.mu.Unlock()
		l.Debug().Msg("Response for unknown room ignored")
		return
	}

	outgoingRinging := call.Direction == domain.DirectionOutgoing && call.Status == domain.StatusRinging
	switch {
	case resp.Action == domain.ActionAccept && outgoingRinging:
		s.stopTimerLocked()
		call.Status = domain.StatusConnecting
		for _, d := range s.held {
			s.enqueueSignalLocked(call.Peer, d)
		}
		s.held = nil
		l.Info().Msg("Call accepted by peer")
	case resp.Action == domain.ActionDecline && outgoingRinging:
		s.finishLocked(domain.StatusDeclined)
		l.Info().Msg("Call declined by peer")
	case resp.Action == domain.ActionEnd:
		s.finishLocked(domain.StatusEnded)
		l.Info().Msg("Call ended by peer")
	default:
		s.mu.Unlock()
		l.Debug().Str("status", string(call.Status)).Msg("Response does not apply in current state")
		return
	}
	s.mu.Unlock()

	s.notify()
	s.flush()
}

func (s *CallService) handleNegotiation(msg domain.Message, datum domain.NegotiationDatum) {
	s.mu.Lock()
	call := s.call
	match := call != nil && call.RoomID == datum.RoomID && call.Peer == msg.SenderID
	s.mu.Unlock()

	if !match {
		log.Debug().Str("room_id", datum.RoomID.String()).Str("kind", string(datum.Kind)).Msg("Negotiation data for unknown room ignored")
		return
	}
	s.media.ApplyNegotiationDatum(datum)
}

func (s *CallService) mediaHandler() port.MediaEventHandler {
	return s.handleMediaEvent
}

func (s *CallService) handleMediaEvent(ev domain.MediaEvent) {
	l := log.With().Str("room_id", ev.RoomID.String()).Str("event", string(ev.Kind)).Logger()

	s.mu.Lock()
	if ev.Kind == domain.EventOutgoingSignal {
		if setup := s.setup; setup != nil && setup.roomID == ev.RoomID {
			if !setup.aborted {
				setup.held = append(setup.held, ev.Signal)
			}
			s.mu.Unlock()
			return
		}
	}

	call := s.call
	if call == nil || call.RoomID != ev.RoomID {
		s.mu.Unlock()
		l.Debug().Msg("Engine event for inactive room ignored")
		return
	}

	switch ev.Kind {
	case domain.EventOutgoingSignal:
		if call.Direction == domain.DirectionOutgoing && call.Status == domain.StatusRinging {
			s.held = append(s.held, ev.Signal)
			s.mu.Unlock()
			return
		}
		s.enqueueSignalLocked(call.Peer, ev.Signal)
		s.mu.Unlock()
		s.flush()
		return

	case domain.EventRemoteStream:
		stream := ev.Stream
		s.remote = &stream

	case domain.EventConnected:
		if call.Status != domain.StatusConnecting {
			s.mu.Unlock()
			return
		}
		now := s.clock.Now()
		call.Status = domain.StatusConnected
		call.ConnectedAt = &now
		l.Info().Msg("Call connected")

	case domain.EventClosed:
		if call.Status == domain.StatusConnected {
			s.finishLocked(domain.StatusEnded)
		} else {
			s.finishLocked(domain.StatusFailed)
		}
		l.Info().Msg("Engine closed")

	case domain.EventFailed:
		s.finishLocked(domain.StatusFailed)
		l.Error().Err(ev.Err).Msg("Negotiation failed")

	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.notify()
}

func (s *CallService) outgoingTimedOut(roomID domain.RoomID) {
	s.mu.Lock()
	call := s.call
	if call == nil || call.RoomID != roomID || call.Status != domain.StatusRinging {
		s.mu.Unlock()
		return
	}
	s.enqueueLocked(outboundMessage{
		to:      call.Peer,
		roomID:  roomID,
		content: codec.EncodeResponse(roomID, domain.ActionEnd),
	})
	s.finishLocked(domain.StatusMissed)
	s.mu.Unlock()

	log.Info().Str("room_id", roomID.String()).Msg("Outgoing call unanswered")
	s.notify()
	s.flush()
}

func (s *CallService) invitationTimedOut(roomID domain.RoomID) {
	s.mu.Lock()
	inv := s.invitation
	if inv == nil || inv.RoomID != roomID || s.setup != nil {
		s.mu.Unlock()
		return
	}
	s.invitation = nil
	s.timer = nil
	s.recordLocked(domain.NewInvitationHistoryEntry(*inv, domain.StatusMissed, s.clock.Now()))
	s.mu.Unlock()

	log.Info().Str("room_id", roomID.String()).Msg("Incoming call missed")
	s.notify()
}

// finishLocked moves the active call to a terminal status, records it,
// releases the engine and resets toggles.
func (s *CallService) finishLocked(status domain.CallStatus) {
	call := s.call
	now := s.clock.Now()
	call.Status = status
	call.EndedAt = &now
	s.recordLocked(domain.NewHistoryEntry(*call, status, now))

	s.stopTimerLocked()
	s.media.Teardown()
	s.call = nil
	s.held = nil
	s.remote = nil
	s.muted = false
	s.videoEnabled = false
	s.dropOutboxLocked(call.RoomID)
}

// releaseAbortedLocked tears down whatever an aborted setup may have built,
// unless a newer session already owns the engine.
func (s *CallService) releaseAbortedLocked() {
	if s.call == nil && s.setup == nil {
		s.media.Teardown()
	}
}

func (s *CallService) recordLocked(entry domain.CallHistoryEntry) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SendTimeout)
	defer cancel()
	if err := s.history.Append(ctx, entry); err != nil {
		log.Error().Err(err).Str("room_id", entry.RoomID.String()).Msg("Failed to record call history")
	}
}

func (s *CallService) idleLocked() bool {
	return s.call == nil && s.invitation == nil && s.setup == nil
}

func (s *CallService) armTimerLocked(roomID domain.RoomID, fire func(domain.RoomID)) {
	s.stopTimerLocked()
	s.timer = s.clock.AfterFunc(s.cfg.RingTimeout, func() { fire(roomID) })
}

func (s *CallService) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *CallService) enqueueLocked(msg outboundMessage) {
	s.outbox = append(s.outbox, msg)
}

func (s *CallService) enqueueSignalLocked(to domain.PeerID, datum domain.NegotiationDatum) {
	s.enqueueLocked(outboundMessage{
		to:       to,
		roomID:   datum.RoomID,
		content:  codec.Encode(datum),
		critical: true,
	})
}

// dropOutboxLocked discards queued negotiation data for a finished room.
// Responses stay queued so the peer still learns the outcome.
func (s *CallService) dropOutboxLocked(roomID domain.RoomID) {
	kept := s.outbox[:0]
	for _, msg := range s.outbox {
		if msg.roomID == roomID && msg.critical {
			continue
		}
		kept = append(kept, msg)
	}
	s.outbox = kept
}

// flush drains the outbox. It returns the first failure of a critical send.
func (s *CallService) flush() error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	var firstErr error
	for {
		s.mu.Lock()
		if len(s.outbox) == 0 {
			s.mu.Unlock()
			return firstErr
		}
		msg := s.outbox[0]
		s.outbox = s.outbox[1:]
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SendTimeout)
		err := s.transport.SendMessage(ctx, msg.to, msg.content)
		cancel()
		if err == nil {
			continue
		}

		if !msg.critical {
			log.Warn().Err(err).Str("room_id", msg.roomID.String()).Msg("Best-effort signal not delivered")
			continue
		}
		log.Error().Err(err).Str("room_id", msg.roomID.String()).Msg("Failed to send signal")
		if s.failFromTransport(msg.roomID) && firstErr == nil {
			firstErr = fmt.Errorf("%w: %w", domain.ErrTransport, err)
		}
	}
}

func (s *CallService) failFromTransport(roomID domain.RoomID) bool {
	s.mu.Lock()
	if s.call == nil || s.call.RoomID != roomID {
		s.mu.Unlock()
		return false
	}
	s.finishLocked(domain.StatusFailed)
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *CallService) snapshotLocked() domain.CallState {
	state := domain.CallState{
		Muted:        s.muted,
		VideoEnabled: s.videoEnabled,
	}
	if s.call != nil {
		call := *s.call
		state.Call = &call
	}
	if s.invitation != nil {
		inv := *s.invitation
		state.Invitation = &inv
	}
	if s.remote != nil {
		remote := *s.remote
		remote.Tracks = append([]string(nil), s.remote.Tracks...)
		state.RemoteStream = &remote
	}
	return state
}

func (s *CallService) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	state := s.snapshotLocked()
	observers := append([]port.CallObserver(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		o.CallStateChanged(state)
	}
}
