// Package peer is the client-side session manager: one negotiated
// transport per remote participant, local media kept in sync across
// all of them.
package peer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/aakashbhandari1000/Meeting/internal/domain"
)

type LinkState string

const (
	StateNew         LinkState = "new"
	StateNegotiating LinkState = "negotiating"
	StateConnected   LinkState = "connected"
	StateFailed      LinkState = "failed"
	StateClosed      LinkState = "closed"
)

var (
	ErrLinkNotNegotiating = errors.New("link is not negotiating")
	ErrLinkTerminal       = errors.New("link is terminal")
)

// Link owns the one peer connection to a single remote participant.
// Terminal states are final: a rejoin gets a fresh Link.
type Link struct {
	remote domain.UserID
	pc     *webrtc.PeerConnection

	mu        sync.Mutex
	state     LinkState
	remoteSet bool
	// Candidates arriving before the remote description cannot be
	// applied yet; they buffer here and flush once it is set.
	pending []webrtc.ICECandidateInit

	audioSender *webrtc.RTPSender
	videoSender *webrtc.RTPSender

	remoteTracks []*webrtc.TrackRemote

	onCandidate func(webrtc.ICECandidateInit)
	onConnected func()
	onFailed    func(*Link)
	onTrack     func(*webrtc.TrackRemote)
}

type linkConfig struct {
	ICEServers  []webrtc.ICEServer
	Audio       webrtc.TrackLocal
	Video       webrtc.TrackLocal
	OnCandidate func(webrtc.ICECandidateInit)
	OnConnected func()
	// OnFailed receives the link that failed so the owner can tell a
	// stale failure apart from one on its current link.
	OnFailed func(*Link)
	OnTrack  func(*webrtc.TrackRemote)
}

func newLink(remote domain.UserID, cfg linkConfig) (*Link, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: cfg.ICEServers})
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	l := &Link{
		remote:      remote,
		pc:          pc,
		state:       StateNew,
		onCandidate: cfg.OnCandidate,
		onConnected: cfg.OnConnected,
		onFailed:    cfg.OnFailed,
		onTrack:     cfg.OnTrack,
	}

	if cfg.Audio != nil {
		sender, err := pc.AddTrack(cfg.Audio)
		if err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("add audio track: %w", err)
		}
		l.audioSender = sender
		go drainRTCP(sender)
	}
	if cfg.Video != nil {
		sender, err := pc.AddTrack(cfg.Video)
		if err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("add video track: %w", err)
		}
		l.videoSender = sender
		go drainRTCP(sender)
	}

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && l.onCandidate != nil {
			l.onCandidate(cand.ToJSON())
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().Str("module", "peer.link").Str("remote", string(remote)).
			Str("kind", track.Kind().String()).Str("track_id", track.ID()).Msg("remote track")
		l.mu.Lock()
		l.remoteTracks = append(l.remoteTracks, track)
		l.mu.Unlock()
		if l.onTrack != nil {
			l.onTrack(track)
		}
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "peer.link").Str("remote", string(remote)).
			Str("state", s.String()).Msg("connection state")
		switch s {
		case webrtc.PeerConnectionStateConnected:
			l.mu.Lock()
			first := l.state == StateNegotiating
			if first {
				l.state = StateConnected
			}
			l.mu.Unlock()
			if first && l.onConnected != nil {
				l.onConnected()
			}
		case webrtc.PeerConnectionStateFailed:
			l.mu.Lock()
			terminal := l.state == StateClosed || l.state == StateFailed
			if !terminal {
				l.state = StateFailed
			}
			l.mu.Unlock()
			if !terminal && l.onFailed != nil {
				l.onFailed(l)
			}
		}
	})

	return l, nil
}

// drainRTCP keeps the sender's RTCP path flowing; reports are unused.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

func (l *Link) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// CreateOffer moves the link into negotiation as the initiating side.
func (l *Link) CreateOffer() (webrtc.SessionDescription, error) {
	l.mu.Lock()
	if l.state != StateNew {
		l.mu.Unlock()
		return webrtc.SessionDescription{}, fmt.Errorf("offer from state %s", l.state)
	}
	l.state = StateNegotiating
	l.mu.Unlock()

	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create offer: %w", err)
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local offer: %w", err)
	}
	return offer, nil
}

// HandleOffer applies a remote offer and returns the answer, moving
// the link into negotiation as the answering side.
func (l *Link) HandleOffer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	l.mu.Lock()
	if l.state == StateClosed || l.state == StateFailed {
		l.mu.Unlock()
		return webrtc.SessionDescription{}, ErrLinkTerminal
	}
	l.state = StateNegotiating
	l.mu.Unlock()

	if err := l.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set remote offer: %w", err)
	}
	l.flushCandidates()

	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create answer: %w", err)
	}
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local answer: %w", err)
	}
	return answer, nil
}

// HandleAnswer completes the exchange on the initiating side. Fails
// (non-fatal for the manager) unless the link is negotiating.
func (l *Link) HandleAnswer(answer webrtc.SessionDescription) error {
	l.mu.Lock()
	if l.state != StateNegotiating {
		state := l.state
		l.mu.Unlock()
		return fmt.Errorf("answer in state %s: %w", state, ErrLinkNotNegotiating)
	}
	l.mu.Unlock()

	if err := l.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}
	l.flushCandidates()
	return nil
}

// AddRemoteCandidate applies a candidate, buffering it when the remote
// description is not set yet.
func (l *Link) AddRemoteCandidate(cand webrtc.ICECandidateInit) error {
	l.mu.Lock()
	if l.state == StateClosed || l.state == StateFailed {
		l.mu.Unlock()
		return nil
	}
	if !l.remoteSet {
		l.pending = append(l.pending, cand)
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()
	return l.pc.AddICECandidate(cand)
}

func (l *Link) flushCandidates() {
	l.mu.Lock()
	l.remoteSet = true
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, cand := range pending {
		if err := l.pc.AddICECandidate(cand); err != nil {
			log.Warn().Err(err).Str("module", "peer.link").Str("remote", string(l.remote)).Msg("buffered candidate rejected")
		}
	}
}

// ReplaceVideo swaps the outbound video track without renegotiation.
func (l *Link) ReplaceVideo(track webrtc.TrackLocal) error {
	if l.videoSender == nil {
		return nil
	}
	return l.videoSender.ReplaceTrack(track)
}

// RemoteTracks returns the accumulated remote media tracks.
func (l *Link) RemoteTracks() []*webrtc.TrackRemote {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*webrtc.TrackRemote, len(l.remoteTracks))
	copy(out, l.remoteTracks)
	return out
}

// Close is terminal; buffered candidates are discarded.
func (l *Link) Close() {
	l.mu.Lock()
	if l.state == StateClosed {
		l.mu.Unlock()
		return
	}
	l.state = StateClosed
	l.pending = nil
	l.mu.Unlock()

	if err := l.pc.Close(); err != nil {
		log.Warn().Err(err).Str("module", "peer.link").Str("remote", string(l.remote)).Msg("close error")
	}
}
