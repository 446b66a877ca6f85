// Package pion implements the PeerConnectionManager on top of pion/webrtc.
package pion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/port"
)

const (
	eventBuffer = 64
	pliInterval = 3 * time.Second
)

var (
	errPeerConnectionFailed = errors.New("peer connection failed")
	errConcurrentStart      = errors.New("another session started concurrently")
)

type Config struct {
	ICEServers []webrtc.ICEServer
	Capturer   Capturer
}

type Manager struct {
	api *webrtc.API
	cfg Config

	mu sync.Mutex
	h  *handle
}

var _ port.PeerConnectionManager = (*Manager)(nil)

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Capturer == nil {
		cfg.Capturer = SampleCapturer{Audio: true, Video: true}
	}

	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("failed to register codecs: %w", err)
	}
	s := webrtc.SettingEngine{}
	s.SetIncludeLoopbackCandidate(true)

	return &Manager{
		api: webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithSettingEngine(s)),
		cfg: cfg,
	}, nil
}

// handle is one negotiation engine and the media feeding it.
type handle struct {
	roomID    domain.RoomID
	initiator bool
	pc        *webrtc.PeerConnection
	local     *LocalMedia

	events    chan domain.MediaEvent
	done      chan struct{}
	closeOnce sync.Once

	mu              sync.Mutex
	descriptionSent bool
	pending         []domain.NegotiationDatum
	remoteSet       bool
	remoteTracks    []string
	connected       bool

	trackMu      sync.Mutex
	audioSender  *webrtc.RTPSender
	videoSender  *webrtc.RTPSender
	muted        bool
	videoEnabled bool
}

func (m *Manager) StartAsInitiator(ctx context.Context, roomID domain.RoomID, wantsVideo bool, handler port.MediaEventHandler) error {
	h, err := m.start(ctx, roomID, wantsVideo, true, handler)
	if err != nil {
		return err
	}

	offer, err := h.pc.CreateOffer(nil)
	if err == nil {
		err = h.pc.SetLocalDescription(offer)
	}
	if err != nil {
		m.release(h)
		return fmt.Errorf("failed to create offer: %w", err)
	}
	h.sendDescription(domain.SignalOffer, offer.SDP)
	return nil
}

func (m *Manager) StartAsResponder(ctx context.Context, roomID domain.RoomID, wantsVideo bool, handler port.MediaEventHandler) error {
	_, err := m.start(ctx, roomID, wantsVideo, false, handler)
	return err
}

func (m *Manager) start(ctx context.Context, roomID domain.RoomID, wantsVideo, initiator bool, handler port.MediaEventHandler) (*handle, error) {
	// the previous session is fully released before capture begins
	m.Teardown()

	local, err := m.cfg.Capturer.Capture(ctx, wantsVideo)
	if err != nil {
		return nil, err
	}

	pc, err := m.api.NewPeerConnection(webrtc.Configuration{ICEServers: m.cfg.ICEServers})
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	h := &handle{
		roomID:    roomID,
		initiator: initiator,
		pc:        pc,
		local:     local,
		events:    make(chan domain.MediaEvent, eventBuffer),
		done:      make(chan struct{}),
	}

	if h.audioSender, err = pc.AddTrack(local.Audio); err != nil {
		h.close()
		return nil, fmt.Errorf("failed to add audio track: %w", err)
	}
	if local.Video != nil {
		if h.videoSender, err = pc.AddTrack(local.Video); err != nil {
			h.close()
			return nil, fmt.Errorf("failed to add video track: %w", err)
		}
		h.videoEnabled = true
	}
	h.install()

	if err := ctx.Err(); err != nil {
		h.close()
		return nil, err
	}

	go h.emit(handler)

	m.mu.Lock()
	if m.h != nil {
		m.mu.Unlock()
		h.close()
		return nil, errConcurrentStart
	}
	m.h = h
	m.mu.Unlock()

	log.Debug().Str("room_id", roomID.String()).Bool("initiator", initiator).Bool("video", wantsVideo).Msg("Peer connection created")
	return h, nil
}

// release drops h if it is still the current handle.
func (m *Manager) release(h *handle) {
	m.mu.Lock()
	if m.h == h {
		m.h = nil
	}
	m.mu.Unlock()
	h.close()
}

func (m *Manager) current() *handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.h
}

func (m *Manager) ApplyNegotiationDatum(datum domain.NegotiationDatum) {
	l := log.With().Str("room_id", datum.RoomID.String()).Str("kind", string(datum.Kind)).Logger()

	h := m.current()
	if h == nil || h.roomID != datum.RoomID {
		l.Debug().Msg("No engine for negotiation datum")
		return
	}

	switch datum.Kind {
	case domain.SignalOffer:
		if h.initiator {
			l.Warn().Msg("Offer received by initiator, dropped")
			return
		}
		if err := h.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: datum.Data}); err != nil {
			h.fail(fmt.Errorf("failed to apply offer: %w", err))
			return
		}
		h.markRemoteSet()
		answer, err := h.pc.CreateAnswer(nil)
		if err == nil {
			err = h.pc.SetLocalDescription(answer)
		}
		if err != nil {
			h.fail(fmt.Errorf("failed to create answer: %w", err))
			return
		}
		h.sendDescription(domain.SignalAnswer, answer.SDP)

	case domain.SignalAnswer:
		if !h.initiator {
			l.Warn().Msg("Answer received by responder, dropped")
			return
		}
		if err := h.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: datum.Data}); err != nil {
			h.fail(fmt.Errorf("failed to apply answer: %w", err))
			return
		}
		h.markRemoteSet()

	case domain.SignalCandidate:
		if !h.hasRemote() {
			l.Debug().Msg("Candidate before remote description, dropped")
			return
		}
		var candidate webrtc.ICECandidateInit
		if err := json.Unmarshal([]byte(datum.Data), &candidate); err != nil {
			l.Warn().Err(err).Msg("Malformed candidate")
			return
		}
		if err := h.pc.AddICECandidate(candidate); err != nil {
			l.Warn().Err(err).Msg("Failed to add candidate")
		}
	}
}

func (m *Manager) ToggleAudio() bool {
	h := m.current()
	if h == nil {
		return false
	}
	h.trackMu.Lock()
	defer h.trackMu.Unlock()

	track := h.local.Audio
	if !h.muted {
		track = nil
	}
	if err := h.audioSender.ReplaceTrack(track); err != nil {
		log.Error().Err(err).Str("room_id", h.roomID.String()).Msg("Failed to toggle audio")
		return h.muted
	}
	h.muted = !h.muted
	return h.muted
}

func (m *Manager) ToggleVideo() bool {
	h := m.current()
	if h == nil {
		return false
	}
	h.trackMu.Lock()
	defer h.trackMu.Unlock()

	if h.videoSender == nil {
		return false
	}
	track := h.local.Video
	if h.videoEnabled {
		track = nil
	}
	if err := h.videoSender.ReplaceTrack(track); err != nil {
		log.Error().Err(err).Str("room_id", h.roomID.String()).Msg("Failed to toggle video")
		return h.videoEnabled
	}
	h.videoEnabled = !h.videoEnabled
	return h.videoEnabled
}

// Teardown never waits on the event handler.
func (m *Manager) Teardown() {
	m.mu.Lock()
	h := m.h
	m.h = nil
	m.mu.Unlock()

	if h != nil {
		h.close()
		log.Debug().Str("room_id", h.roomID.String()).Msg("Peer connection closed")
	}
}

func (h *handle) install() {
	h.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal candidate")
			return
		}
		h.sendCandidate(string(data))
	})

	h.pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		kind := remote.Kind().String()
		log.Debug().Str("room_id", h.roomID.String()).Str("kind", kind).Msg("Remote track")

		h.mu.Lock()
		h.remoteTracks = append(h.remoteTracks, kind)
		stream := domain.RemoteStream{
			StreamID: remote.StreamID(),
			Tracks:   append([]string(nil), h.remoteTracks...),
		}
		h.mu.Unlock()
		h.push(domain.MediaEvent{Kind: domain.EventRemoteStream, RoomID: h.roomID, Stream: stream})

		go h.drain(remote)
		if remote.Kind() == webrtc.RTPCodecTypeVideo {
			go h.requestKeyframes(remote)
		}
	})

	h.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug().Str("room_id", h.roomID.String()).Str("state", state.String()).Msg("Connection state")
		switch state {
		case webrtc.PeerConnectionStateConnected:
			h.mu.Lock()
			first := !h.connected
			h.connected = true
			h.mu.Unlock()
			if first {
				h.push(domain.MediaEvent{Kind: domain.EventConnected, RoomID: h.roomID})
			}
		case webrtc.PeerConnectionStateFailed:
			h.fail(errPeerConnectionFailed)
		case webrtc.PeerConnectionStateClosed:
			h.push(domain.MediaEvent{Kind: domain.EventClosed, RoomID: h.roomID})
		}
	})
}

// sendDescription emits the local description followed by every candidate
// gathered before it.
func (h *handle) sendDescription(kind domain.SignalKind, sdp string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.push(domain.MediaEvent{
		Kind:   domain.EventOutgoingSignal,
		RoomID: h.roomID,
		Signal: domain.NegotiationDatum{RoomID: h.roomID, Kind: kind, Data: sdp},
	})
	for _, d := range h.pending {
		h.push(domain.MediaEvent{Kind: domain.EventOutgoingSignal, RoomID: h.roomID, Signal: d})
	}
	h.pending = nil
	h.descriptionSent = true
}

func (h *handle) sendCandidate(data string) {
	datum := domain.NegotiationDatum{RoomID: h.roomID, Kind: domain.SignalCandidate, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.descriptionSent {
		h.pending = append(h.pending, datum)
		return
	}
	h.push(domain.MediaEvent{Kind: domain.EventOutgoingSignal, RoomID: h.roomID, Signal: datum})
}

func (h *handle) markRemoteSet() {
	h.mu.Lock()
	h.remoteSet = true
	h.mu.Unlock()
}

func (h *handle) hasRemote() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.remoteSet
}

func (h *handle) fail(err error) {
	log.Error().Err(err).Str("room_id", h.roomID.String()).Msg("Negotiation failed")
	h.push(domain.MediaEvent{Kind: domain.EventFailed, RoomID: h.roomID, Err: err})
}

func (h *handle) push(ev domain.MediaEvent) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

func (h *handle) emit(handler port.MediaEventHandler) {
	for {
		select {
		case <-h.done:
			return
		default:
		}
		select {
		case ev := <-h.events:
			handler(ev)
		case <-h.done:
			return
		}
	}
}

func (h *handle) drain(remote *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := remote.Read(buf); err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Str("room_id", h.roomID.String()).Msg("Remote track read stopped")
			}
			return
		}
	}
}

func (h *handle) requestKeyframes(remote *webrtc.TrackRemote) {
	ticker := time.NewTicker(pliInterval)
	defer ticker.Stop()
	for {
		if err := h.pc.WriteRTCP([]rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: uint32(remote.SSRC())}}); err != nil {
			return
		}
		select {
		case <-h.done:
			return
		case <-ticker.C:
		}
	}
}

func (h *handle) close() {
	h.closeOnce.Do(func() {
		close(h.done)
		if err := h.pc.Close(); err != nil {
			log.Warn().Err(err).Str("room_id", h.roomID.String()).Msg("Failed to close peer connection")
		}
		h.local.Close()
	})
}
