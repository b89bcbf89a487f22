// Package protocol is the wire contract between the signaling server
// and peer session clients. Envelopes are routed, never stored.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/aakashbhandari1000/Meeting/internal/domain"
)

type Kind string

const (
	// Client -> server
	KindJoinMeeting       Kind = "join-meeting"
	KindLeaveMeeting      Kind = "leave-meeting"
	KindOffer             Kind = "offer"
	KindAnswer            Kind = "answer"
	KindICECandidate      Kind = "ice-candidate"
	KindChatMessage       Kind = "chat-message"
	KindReaction          Kind = "reaction"
	KindMuteParticipant   Kind = "mute-participant"
	KindRemoveParticipant Kind = "remove-participant"
	KindAdmitParticipant  Kind = "admit-participant"
	KindEndMeeting        Kind = "end-meeting"
	KindPing              Kind = "ping"

	// Server -> client
	KindParticipantJoined  Kind = "participant-joined"
	KindParticipantLeft    Kind = "participant-left"
	KindParticipantRemoved Kind = "participant-removed"
	KindParticipantMuted   Kind = "participant-muted"
	KindMuteAudio          Kind = "mute-audio"
	KindRemoved            Kind = "removed"
	KindWaiting            Kind = "waiting"
	KindMeetingEnded       Kind = "meeting-ended"
	KindPong               Kind = "pong"
	KindError              Kind = "error"
)

// SDP is the transport form of a session description.
type SDP struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

func SDPFromPion(desc webrtc.SessionDescription) SDP {
	return SDP{Type: desc.Type.String(), SDP: desc.SDP}
}

func (s SDP) ToPion() (webrtc.SessionDescription, error) {
	var t webrtc.SDPType
	switch s.Type {
	case "offer":
		t = webrtc.SDPTypeOffer
	case "answer":
		t = webrtc.SDPTypeAnswer
	default:
		return webrtc.SessionDescription{}, fmt.Errorf("unsupported sdp type %q", s.Type)
	}
	return webrtc.SessionDescription{Type: t, SDP: s.SDP}, nil
}

// Candidate is the transport form of an ICE candidate.
type Candidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

func CandidateFromPion(init webrtc.ICECandidateInit) Candidate {
	return Candidate{
		Candidate:     init.Candidate,
		SDPMid:        init.SDPMid,
		SDPMLineIndex: init.SDPMLineIndex,
	}
}

func (c Candidate) ToPion() webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	}
}

// ParticipantInfo is the read-only membership view sent to clients.
type ParticipantInfo struct {
	UserID       domain.UserID `json:"userId"`
	DisplayName  string        `json:"displayName"`
	IsHost       bool          `json:"isHost"`
	AudioEnabled bool          `json:"audioEnabled"`
	VideoEnabled bool          `json:"videoEnabled"`
}

// Envelope carries every signal kind. Unused fields stay empty; Validate
// enforces the per-kind required set.
type Envelope struct {
	Kind Kind `json:"kind"`

	MeetingID    domain.MeetingID `json:"meetingId,omitempty"`
	UserID       domain.UserID    `json:"userId,omitempty"`
	TargetUserID domain.UserID    `json:"targetUserId,omitempty"`
	DisplayName  string           `json:"displayName,omitempty"`

	SDP       *SDP       `json:"sdp,omitempty"`
	Candidate *Candidate `json:"candidate,omitempty"`

	IsHost       bool              `json:"isHost,omitempty"`
	Participants []ParticipantInfo `json:"participants,omitempty"`

	Message  string `json:"message,omitempty"`
	Reaction string `json:"reaction,omitempty"`
	// Unix milliseconds; zero means unset.
	Timestamp int64 `json:"timestamp,omitempty"`

	Error string `json:"error,omitempty"`
}

// Decode parses and validates a single envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func (e Envelope) Validate() error {
	switch e.Kind {
	case KindJoinMeeting:
		if e.MeetingID == "" || e.UserID == "" {
			return fmt.Errorf("join-meeting missing meetingId/userId")
		}
	case KindLeaveMeeting:
		// Meeting and user resolve from the connection's session index
		// entry server-side; no required fields.
	case KindOffer:
		if e.SDP == nil || e.SDP.Type != "offer" {
			return fmt.Errorf("offer missing or mistyped sdp")
		}
		if e.TargetUserID == "" {
			return fmt.Errorf("offer missing targetUserId")
		}
	case KindAnswer:
		if e.SDP == nil || e.SDP.Type != "answer" {
			return fmt.Errorf("answer missing or mistyped sdp")
		}
		if e.TargetUserID == "" {
			return fmt.Errorf("answer missing targetUserId")
		}
	case KindICECandidate:
		if e.Candidate == nil {
			return fmt.Errorf("ice-candidate missing candidate")
		}
		if e.TargetUserID == "" {
			return fmt.Errorf("ice-candidate missing targetUserId")
		}
	case KindChatMessage:
		if e.Message == "" {
			return fmt.Errorf("chat-message missing message")
		}
	case KindReaction:
		if e.Reaction == "" {
			return fmt.Errorf("reaction missing reaction")
		}
	case KindMuteParticipant, KindRemoveParticipant, KindAdmitParticipant:
		if e.MeetingID == "" || e.TargetUserID == "" {
			return fmt.Errorf("%s missing meetingId/targetUserId", e.Kind)
		}
	case KindEndMeeting:
		if e.MeetingID == "" {
			return fmt.Errorf("end-meeting missing meetingId")
		}
	case KindParticipantJoined, KindParticipantLeft, KindParticipantRemoved,
		KindParticipantMuted, KindWaiting:
		if e.UserID == "" {
			return fmt.Errorf("%s missing userId", e.Kind)
		}
	case KindMuteAudio, KindRemoved, KindMeetingEnded, KindPing, KindPong:
		// Addressed by delivery, no payload required.
	case KindError:
		if e.Error == "" {
			return fmt.Errorf("error envelope missing error")
		}
	default:
		return fmt.Errorf("unsupported envelope kind %q", e.Kind)
	}
	return nil
}
