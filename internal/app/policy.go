package app

import "github.com/aakashbhandari1000/Meeting/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	DisconnectMember
)

// Policy decides what happens to a member whose connection cannot keep
// up with broadcast traffic.
type Policy interface {
	OnBackpressure(meeting domain.MeetingID, user domain.UserID) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackpressure(meeting domain.MeetingID, user domain.UserID) BackpressureAction {
	return DisconnectMember
}
