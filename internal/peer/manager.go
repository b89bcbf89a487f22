package peer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/aakashbhandari1000/Meeting/internal/core"
	"github.com/aakashbhandari1000/Meeting/internal/domain"
	"github.com/aakashbhandari1000/Meeting/internal/protocol"
)

var ErrNotJoined = errors.New("not joined to a meeting")

// Events carries the application callbacks. Nil fields are skipped.
// Callbacks run on the read loop goroutine; keep them short.
type Events struct {
	OnJoined            func(isHost bool, participants []protocol.ParticipantInfo)
	OnWaiting           func()
	OnParticipantJoined func(protocol.ParticipantInfo)
	OnParticipantLeft   func(domain.UserID)
	OnChat              func(from domain.UserID, displayName, message string, sentAt time.Time)
	OnReaction          func(from domain.UserID, reaction string)
	OnMuteRequest       func()
	OnRemoved           func()
	OnMeetingEnded      func()
	OnRemoteTrack       func(from domain.UserID, track *webrtc.TrackRemote)
	OnError             func(code string)
}

// Manager drives one client's participation in a meeting: the signaling
// connection plus one Link per remote participant. The smaller user id
// of any pair initiates negotiation, so exactly one side offers.
type Manager struct {
	userID      domain.UserID
	displayName string
	iceServers  []webrtc.ICEServer
	events      Events

	// send is the signaling sink. Connect points it at the websocket;
	// it is a field so the dispatch path does not require a live dial.
	send func(protocol.Envelope) error

	mu         sync.Mutex
	meetingID  domain.MeetingID
	isHost     bool
	members    map[domain.UserID]bool
	links      map[domain.UserID]*Link
	localAudio webrtc.TrackLocal
	localVideo webrtc.TrackLocal
	closed     bool

	conn    *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
}

type Config struct {
	UserID      domain.UserID
	DisplayName string
	StunURLs    []string
	Audio       webrtc.TrackLocal
	Video       webrtc.TrackLocal
	Events      Events
}

func NewManager(cfg Config) *Manager {
	servers := make([]webrtc.ICEServer, 0, len(cfg.StunURLs))
	for _, u := range cfg.StunURLs {
		servers = append(servers, webrtc.ICEServer{URLs: []string{u}})
	}
	return &Manager{
		userID:      cfg.UserID,
		displayName: cfg.DisplayName,
		iceServers:  servers,
		events:      cfg.Events,
		members:     make(map[domain.UserID]bool),
		links:       make(map[domain.UserID]*Link),
		localAudio:  cfg.Audio,
		localVideo:  cfg.Video,
		done:        make(chan struct{}),
	}
}

// Connect dials the signaling endpoint and requests to join.
func (m *Manager) Connect(ctx context.Context, wsURL string, meetingID domain.MeetingID) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial signaling: %w", core.ErrUnavailable)
	}

	m.mu.Lock()
	m.conn = conn
	m.meetingID = meetingID
	m.mu.Unlock()
	m.send = m.writeConn

	go m.readLoop(conn)

	return m.send(protocol.Envelope{
		Kind:        protocol.KindJoinMeeting,
		MeetingID:   meetingID,
		UserID:      m.userID,
		DisplayName: m.displayName,
	})
}

func (m *Manager) writeConn(env protocol.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := m.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write signaling: %w", core.ErrUnavailable)
	}
	return nil
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	defer func() {
		m.TeardownAll()
		close(m.done)
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Info().Err(err).Str("module", "peer.manager").Msg("signaling closed")
			return
		}
		env, err := protocol.Decode(data)
		if err != nil {
			log.Warn().Err(err).Str("module", "peer.manager").Msg("bad envelope from server")
			continue
		}
		m.handle(env)
	}
}

// Done closes when the signaling connection ends.
func (m *Manager) Done() <-chan struct{} { return m.done }

func (m *Manager) handle(env protocol.Envelope) {
	switch env.Kind {
	case protocol.KindParticipantJoined:
		m.onParticipantJoined(env)
	case protocol.KindOffer:
		m.onRemoteOffer(env)
	case protocol.KindAnswer:
		m.onRemoteAnswer(env)
	case protocol.KindICECandidate:
		m.onRemoteCandidate(env)
	case protocol.KindParticipantLeft, protocol.KindParticipantRemoved:
		m.onParticipantLeft(env.UserID)
	case protocol.KindWaiting:
		if m.events.OnWaiting != nil {
			m.events.OnWaiting()
		}
	case protocol.KindChatMessage:
		if m.events.OnChat != nil {
			m.events.OnChat(env.UserID, env.DisplayName, env.Message, time.UnixMilli(env.Timestamp))
		}
	case protocol.KindReaction:
		if m.events.OnReaction != nil {
			m.events.OnReaction(env.UserID, env.Reaction)
		}
	case protocol.KindMuteAudio:
		if m.events.OnMuteRequest != nil {
			m.events.OnMuteRequest()
		}
	case protocol.KindParticipantMuted:
		// roster update only; nothing to renegotiate
	case protocol.KindRemoved:
		m.TeardownAll()
		if m.events.OnRemoved != nil {
			m.events.OnRemoved()
		}
	case protocol.KindMeetingEnded:
		m.TeardownAll()
		if m.events.OnMeetingEnded != nil {
			m.events.OnMeetingEnded()
		}
	case protocol.KindError:
		log.Warn().Str("module", "peer.manager").Str("code", env.Error).Msg("server error")
		if m.events.OnError != nil {
			m.events.OnError(env.Error)
		}
	case protocol.KindPong:
	default:
		log.Debug().Str("module", "peer.manager").Str("kind", string(env.Kind)).Msg("unhandled envelope")
	}
}

// onParticipantJoined handles both the roster snapshot delivered to us
// on join and single-joiner notifications afterwards.
func (m *Manager) onParticipantJoined(env protocol.Envelope) {
	if env.Participants != nil {
		m.mu.Lock()
		m.isHost = env.IsHost
		var others []protocol.ParticipantInfo
		for _, p := range env.Participants {
			if p.UserID == m.userID {
				continue
			}
			m.members[p.UserID] = true
			others = append(others, p)
		}
		m.mu.Unlock()
		sort.Slice(others, func(i, j int) bool { return others[i].UserID < others[j].UserID })
		if m.events.OnJoined != nil {
			m.events.OnJoined(env.IsHost, others)
		}
		for _, p := range others {
			m.pair(p.UserID)
		}
		return
	}

	remote := env.UserID
	if remote == m.userID {
		return
	}
	m.mu.Lock()
	m.members[remote] = true
	m.mu.Unlock()
	if m.events.OnParticipantJoined != nil {
		m.events.OnParticipantJoined(protocol.ParticipantInfo{
			UserID:      env.UserID,
			DisplayName: env.DisplayName,
			IsHost:      env.IsHost,
		})
	}
	m.pair(remote)
}

// pair applies the initiation rule for one remote: the lexicographically
// smaller user id offers, the other side waits for that offer.
func (m *Manager) pair(remote domain.UserID) {
	if m.userID >= remote {
		return
	}
	m.mu.Lock()
	link, err := m.ensureLinkLocked(remote)
	m.mu.Unlock()
	if err != nil {
		log.Error().Err(err).Str("module", "peer.manager").Str("remote", string(remote)).Msg("link setup failed")
		return
	}
	m.offer(remote, link)
}

func (m *Manager) offer(remote domain.UserID, link *Link) {
	offer, err := link.CreateOffer()
	if err != nil {
		log.Error().Err(err).Str("module", "peer.manager").Str("remote", string(remote)).Msg("offer failed")
		return
	}
	sdp := protocol.SDPFromPion(offer)
	m.sendEnvelope(protocol.Envelope{
		Kind:         protocol.KindOffer,
		TargetUserID: remote,
		SDP:          &sdp,
	})
}

// ensureLinkLocked creates the link for remote if absent, attaching the
// current local tracks. Caller holds m.mu, which is what makes track
// replacement atomic with respect to link creation.
func (m *Manager) ensureLinkLocked(remote domain.UserID) (*Link, error) {
	if link, ok := m.links[remote]; ok {
		return link, nil
	}
	link, err := newLink(remote, linkConfig{
		ICEServers: m.iceServers,
		Audio:      m.localAudio,
		Video:      m.localVideo,
		OnCandidate: func(cand webrtc.ICECandidateInit) {
			c := protocol.CandidateFromPion(cand)
			m.sendEnvelope(protocol.Envelope{
				Kind:         protocol.KindICECandidate,
				TargetUserID: remote,
				Candidate:    &c,
			})
		},
		OnConnected: func() {
			log.Info().Str("module", "peer.manager").Str("remote", string(remote)).Msg("link connected")
		},
		OnFailed: func(failed *Link) {
			go m.recover(remote, failed)
		},
		OnTrack: func(track *webrtc.TrackRemote) {
			if m.events.OnRemoteTrack != nil {
				m.events.OnRemoteTrack(remote, track)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	m.links[remote] = link
	return link, nil
}

func (m *Manager) onRemoteOffer(env protocol.Envelope) {
	remote := env.UserID
	m.mu.Lock()
	if old, ok := m.links[remote]; ok && old.State() != StateNew {
		// renegotiation after failure, or a rejoin; start clean
		delete(m.links, remote)
		defer old.Close()
	}
	link, err := m.ensureLinkLocked(remote)
	m.mu.Unlock()
	if err != nil {
		log.Error().Err(err).Str("module", "peer.manager").Str("remote", string(remote)).Msg("link setup failed")
		return
	}

	offerDesc, err := env.SDP.ToPion()
	if err != nil {
		log.Warn().Err(err).Str("module", "peer.manager").Str("remote", string(remote)).Msg("bad offer sdp")
		return
	}
	answer, err := link.HandleOffer(offerDesc)
	if err != nil {
		log.Error().Err(err).Str("module", "peer.manager").Str("remote", string(remote)).Msg("answer failed")
		return
	}
	sdp := protocol.SDPFromPion(answer)
	m.sendEnvelope(protocol.Envelope{
		Kind:         protocol.KindAnswer,
		TargetUserID: remote,
		SDP:          &sdp,
	})
}

func (m *Manager) onRemoteAnswer(env protocol.Envelope) {
	remote := env.UserID
	m.mu.Lock()
	link, ok := m.links[remote]
	m.mu.Unlock()
	if !ok {
		log.Debug().Str("module", "peer.manager").Str("remote", string(remote)).Msg("answer without link")
		return
	}
	desc, err := env.SDP.ToPion()
	if err != nil {
		log.Warn().Err(err).Str("module", "peer.manager").Str("remote", string(remote)).Msg("bad answer sdp")
		return
	}
	if err := link.HandleAnswer(desc); err != nil {
		log.Warn().Err(err).Str("module", "peer.manager").Str("remote", string(remote)).Msg("answer rejected")
	}
}

// onRemoteCandidate routes a candidate to its link. Candidates for a
// remote with no link yet are dropped; the eventual offer establishes
// the link and candidates regathered after that land normally.
func (m *Manager) onRemoteCandidate(env protocol.Envelope) {
	remote := env.UserID
	m.mu.Lock()
	link, ok := m.links[remote]
	m.mu.Unlock()
	if !ok {
		log.Debug().Str("module", "peer.manager").Str("remote", string(remote)).Msg("candidate without link, dropped")
		return
	}
	if err := link.AddRemoteCandidate(env.Candidate.ToPion()); err != nil {
		log.Warn().Err(err).Str("module", "peer.manager").Str("remote", string(remote)).Msg("candidate rejected")
	}
}

func (m *Manager) onParticipantLeft(remote domain.UserID) {
	m.mu.Lock()
	delete(m.members, remote)
	link, ok := m.links[remote]
	delete(m.links, remote)
	m.mu.Unlock()
	if ok {
		link.Close()
	}
	if m.events.OnParticipantLeft != nil {
		m.events.OnParticipantLeft(remote)
	}
}

// recover tears down a failed link and renegotiates, but only while the
// remote is still a member; a failure caused by their departure is final.
// The failed link is passed by identity: if the remote's fresh offer
// already replaced it, the replacement must be left alone.
func (m *Manager) recover(remote domain.UserID, failed *Link) {
	failed.Close()
	m.mu.Lock()
	if m.links[remote] != failed {
		m.mu.Unlock()
		log.Debug().Str("module", "peer.manager").Str("remote", string(remote)).Msg("stale failure, link already replaced")
		return
	}
	delete(m.links, remote)
	if m.closed || !m.members[remote] {
		m.mu.Unlock()
		return
	}
	initiate := m.userID < remote
	var (
		link *Link
		err  error
	)
	if initiate {
		link, err = m.ensureLinkLocked(remote)
	}
	m.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("module", "peer.manager").Str("remote", string(remote)).Msg("renegotiation setup failed")
		return
	}
	if initiate {
		log.Info().Str("module", "peer.manager").Str("remote", string(remote)).Msg("renegotiating failed link")
		m.offer(remote, link)
	}
	// the non-initiating side waits for the peer's fresh offer
}

// ReplaceOutboundVideo swaps the outgoing video track on every link.
// Links created concurrently pick up the new track; no link ever
// carries a mix of old and new.
func (m *Manager) ReplaceOutboundVideo(track webrtc.TrackLocal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for remote, link := range m.links {
		if err := link.ReplaceVideo(track); err != nil {
			return fmt.Errorf("replace video for %s: %w", remote, err)
		}
	}
	m.localVideo = track
	return nil
}

// Link returns the live link to remote, if any.
func (m *Manager) Link(remote domain.UserID) (*Link, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[remote]
	return link, ok
}

func (m *Manager) IsHost() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isHost
}

func (m *Manager) sendEnvelope(env protocol.Envelope) {
	if m.send == nil {
		return
	}
	if err := m.send(env); err != nil {
		log.Warn().Err(err).Str("module", "peer.manager").Str("kind", string(env.Kind)).Msg("send failed")
	}
}

// SendChat publishes a chat message to the meeting.
func (m *Manager) SendChat(message string) error {
	if m.send == nil {
		return ErrNotJoined
	}
	return m.send(protocol.Envelope{Kind: protocol.KindChatMessage, Message: message})
}

// SendReaction publishes an ephemeral reaction.
func (m *Manager) SendReaction(reaction string) error {
	if m.send == nil {
		return ErrNotJoined
	}
	return m.send(protocol.Envelope{Kind: protocol.KindReaction, Reaction: reaction})
}

// MuteParticipant asks the server to mute target. Host only; the server
// drops it otherwise.
func (m *Manager) MuteParticipant(target domain.UserID) error {
	return m.hostControl(protocol.KindMuteParticipant, target)
}

// RemoveParticipant ejects target from the meeting. Host only.
func (m *Manager) RemoveParticipant(target domain.UserID) error {
	return m.hostControl(protocol.KindRemoveParticipant, target)
}

// AdmitParticipant approves target from the waiting room. Host only.
func (m *Manager) AdmitParticipant(target domain.UserID) error {
	return m.hostControl(protocol.KindAdmitParticipant, target)
}

func (m *Manager) hostControl(kind protocol.Kind, target domain.UserID) error {
	if m.send == nil {
		return ErrNotJoined
	}
	m.mu.Lock()
	meetingID := m.meetingID
	m.mu.Unlock()
	return m.send(protocol.Envelope{
		Kind:         kind,
		MeetingID:    meetingID,
		TargetUserID: target,
	})
}

// EndMeeting ends the meeting for everyone. Host only.
func (m *Manager) EndMeeting() error {
	if m.send == nil {
		return ErrNotJoined
	}
	m.mu.Lock()
	meetingID := m.meetingID
	m.mu.Unlock()
	return m.send(protocol.Envelope{Kind: protocol.KindEndMeeting, MeetingID: meetingID})
}

// Leave announces departure, then tears everything down.
func (m *Manager) Leave() error {
	var sendErr error
	if m.send != nil {
		sendErr = m.send(protocol.Envelope{Kind: protocol.KindLeaveMeeting})
	}
	m.TeardownAll()
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	return sendErr
}

// Teardown closes the link to one remote.
func (m *Manager) Teardown(remote domain.UserID) {
	m.mu.Lock()
	link, ok := m.links[remote]
	delete(m.links, remote)
	m.mu.Unlock()
	if ok {
		link.Close()
	}
}

// TeardownAll closes every link. Idempotent.
func (m *Manager) TeardownAll() {
	m.mu.Lock()
	m.closed = true
	links := m.links
	m.links = make(map[domain.UserID]*Link)
	m.members = make(map[domain.UserID]bool)
	m.mu.Unlock()
	for _, link := range links {
		link.Close()
	}
}
