package pion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"

	"github.com/Wyydra/yacall/internal/core/domain"
)

const streamID = "yacall"

// Capturer acquires the local tracks for one call.
type Capturer interface {
	Capture(ctx context.Context, wantsVideo bool) (*LocalMedia, error)
}

// LocalMedia is what a Capturer produced. Video is nil for audio-only calls.
type LocalMedia struct {
	Audio webrtc.TrackLocal
	Video webrtc.TrackLocal

	stop      func()
	closeOnce sync.Once
}

func NewLocalMedia(audio, video webrtc.TrackLocal, stop func()) *LocalMedia {
	return &LocalMedia{Audio: audio, Video: video, stop: stop}
}

// Close stops capture. Safe to call more than once.
func (m *LocalMedia) Close() {
	m.closeOnce.Do(func() {
		if m.stop != nil {
			m.stop()
		}
	})
}

// SampleCapturer produces sample tracks without touching real devices. The
// audio track carries Opus silence so the remote side sees RTP flowing.
type SampleCapturer struct {
	Audio bool
	Video bool
}

func (c SampleCapturer) Capture(ctx context.Context, wantsVideo bool) (*LocalMedia, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.Audio {
		return nil, fmt.Errorf("%w: no audio input", domain.ErrMediaUnavailable)
	}
	if wantsVideo && !c.Video {
		return nil, fmt.Errorf("%w: no video input", domain.ErrMediaUnavailable)
	}

	audio, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio track: %w", err)
	}

	var video webrtc.TrackLocal
	if wantsVideo {
		video, err = webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", streamID)
		if err != nil {
			return nil, fmt.Errorf("failed to create video track: %w", err)
		}
	}

	done := make(chan struct{})
	go writeSilence(audio, done)
	return NewLocalMedia(audio, video, func() { close(done) }), nil
}

// opusSilence is a single 20ms Opus frame of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

func writeSilence(track *webrtc.TrackLocalStaticSample, done <-chan struct{}) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := track.WriteSample(media.Sample{Data: opusSilence, Duration: 20 * time.Millisecond}); err != nil {
				log.Debug().Err(err).Msg("Silence writer stopped")
				return
			}
		}
	}
}
