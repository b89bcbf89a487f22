package domain

import "time"

type (
	MeetingID  string
	ConnHandle string
)

type Role string

const (
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

type MeetingStatus string

const (
	MeetingActive MeetingStatus = "active"
	MeetingEnded  MeetingStatus = "ended"
)

// Settings are host-configurable meeting switches.
type Settings struct {
	Password         string `json:"password,omitempty"`
	WaitingRoom      bool   `json:"waitingRoom"`
	MuteOnJoin       bool   `json:"muteOnJoin"`
	HostControls     bool   `json:"hostControls"`
	AllowChat        bool   `json:"allowChat"`
	AllowRecording   bool   `json:"allowRecording"`
	AllowScreenShare bool   `json:"allowScreenShare"`
}

// DefaultSettings mirrors what a freshly created meeting gets.
func DefaultSettings() Settings {
	return Settings{
		MuteOnJoin:       false,
		HostControls:     true,
		AllowChat:        true,
		AllowScreenShare: true,
	}
}

// Participant is the authoritative membership record of one attendee.
// Conn points at the server-side connection that currently represents
// this participant; exactly one handle per user at any time.
type Participant struct {
	ID           UserID     `json:"id"`
	DisplayName  string     `json:"displayName"`
	Role         Role       `json:"role"`
	Conn         ConnHandle `json:"conn"`
	AudioEnabled bool       `json:"audioEnabled"`
	VideoEnabled bool       `json:"videoEnabled"`
	JoinedAt     time.Time  `json:"joinedAt"`
}

// Meeting is the server-authoritative record; the persisted copy lives
// in the document store.
type Meeting struct {
	ID           MeetingID              `json:"id"`
	Host         UserID                 `json:"host"`
	Participants map[UserID]Participant `json:"participants"`
	Settings     Settings               `json:"settings"`
	Status       MeetingStatus          `json:"status"`
	CreatedAt    time.Time              `json:"createdAt"`
	EndedAt      time.Time              `json:"endedAt,omitempty"`
}

// NewMeeting avoids raw literals in adapters and keeps construction obvious.
func NewMeeting(id MeetingID, host UserID, settings Settings) *Meeting {
	return &Meeting{
		ID:           id,
		Host:         host,
		Participants: make(map[UserID]Participant),
		Settings:     settings,
		Status:       MeetingActive,
		CreatedAt:    time.Now().UTC(),
	}
}

func (m *Meeting) IsHost(id UserID) bool { return m.Host == id }

// ChatEntry is one persisted chat line.
type ChatEntry struct {
	UserID      UserID    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Body        string    `json:"body"`
	SentAt      time.Time `json:"sentAt"`
}
