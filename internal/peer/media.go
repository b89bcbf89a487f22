package peer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"
)

var ErrCameraInUse = errors.New("camera already acquired")

// The capture device is exclusive hardware: only one camera session
// can be live in the process at a time.
var (
	cameraMu     sync.Mutex
	cameraActive bool
)

// CameraSession holds the local capture tracks for one acquisition of
// the device. Release before acquiring again.
type CameraSession struct {
	audio *webrtc.TrackLocalStaticSample
	video *webrtc.TrackLocalStaticSample

	mu       sync.Mutex
	released bool
}

// AcquireCamera claims the capture device and builds the local tracks
// fed by it. Fails with ErrCameraInUse while another session is live.
func AcquireCamera(streamID string) (*CameraSession, error) {
	cameraMu.Lock()
	defer cameraMu.Unlock()
	if cameraActive {
		return nil, ErrCameraInUse
	}

	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", streamID)
	if err != nil {
		return nil, fmt.Errorf("audio track: %w", err)
	}
	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", streamID)
	if err != nil {
		return nil, fmt.Errorf("video track: %w", err)
	}

	cameraActive = true
	log.Info().Str("module", "peer.media").Str("stream", streamID).Msg("camera acquired")
	return &CameraSession{audio: audio, video: video}, nil
}

func (s *CameraSession) AudioTrack() webrtc.TrackLocal { return s.audio }
func (s *CameraSession) VideoTrack() webrtc.TrackLocal { return s.video }

// WriteAudioSample feeds one captured audio sample into the track.
func (s *CameraSession) WriteAudioSample(sample media.Sample) error {
	return s.audio.WriteSample(sample)
}

// WriteVideoSample feeds one captured video frame into the track.
func (s *CameraSession) WriteVideoSample(sample media.Sample) error {
	return s.video.WriteSample(sample)
}

// Release frees the device. Idempotent.
func (s *CameraSession) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	cameraMu.Lock()
	cameraActive = false
	cameraMu.Unlock()
	log.Info().Str("module", "peer.media").Msg("camera released")
}

// NewScreenTrack builds a local video track for screen capture. The
// screen is not the camera; acquiring it does not contend for the
// camera session.
func NewScreenTrack(streamID string) (*webrtc.TrackLocalStaticSample, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "screen", streamID)
	if err != nil {
		return nil, fmt.Errorf("screen track: %w", err)
	}
	return track, nil
}

// ScreenShare swaps the manager's outbound video to a screen track and
// restores the camera feed on stop.
type ScreenShare struct {
	manager *Manager
	camera  webrtc.TrackLocal
	track   *webrtc.TrackLocalStaticSample

	mu     sync.Mutex
	active bool
}

// StartScreenShare replaces the outgoing video on every link with a
// fresh screen track. Returns the share handle used to feed frames and
// to stop.
func (m *Manager) StartScreenShare(streamID string) (*ScreenShare, error) {
	track, err := NewScreenTrack(streamID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	camera := m.localVideo
	m.mu.Unlock()

	if err := m.ReplaceOutboundVideo(track); err != nil {
		return nil, err
	}
	log.Info().Str("module", "peer.media").Str("stream", streamID).Msg("screen share started")
	return &ScreenShare{manager: m, camera: camera, track: track, active: true}, nil
}

// Track exposes the screen track for the capture loop to write into.
func (s *ScreenShare) Track() *webrtc.TrackLocalStaticSample { return s.track }

// Stop restores the camera video on every link. Idempotent.
func (s *ScreenShare) Stop() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	s.mu.Unlock()

	log.Info().Str("module", "peer.media").Msg("screen share stopped")
	return s.manager.ReplaceOutboundVideo(s.camera)
}
