package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/aakashbhandari1000/Meeting/internal/core"
	"github.com/aakashbhandari1000/Meeting/internal/domain"
)

type memberKey struct {
	meeting domain.MeetingID
	user    domain.UserID
}

type indexEntry struct {
	Meeting domain.MeetingID
	User    domain.UserID
	Conn    core.SignalConn
	Cancel  context.CancelFunc
}

// SessionIndex maps live connection handles to meeting membership.
// Ephemeral, process-lifetime, never persisted: created on connect,
// destroyed on disconnect. It is a cache over the document store that
// disconnect cleanup always repairs.
type SessionIndex struct {
	mu       sync.RWMutex
	byHandle map[domain.ConnHandle]*indexEntry
	byMember map[memberKey]domain.ConnHandle
}

func NewSessionIndex() *SessionIndex {
	return &SessionIndex{
		byHandle: make(map[domain.ConnHandle]*indexEntry),
		byMember: make(map[memberKey]domain.ConnHandle),
	}
}

// Bind records handle as the connection representing (meeting, user).
// A second bind for the same member supersedes the first and returns
// the superseded connection so the caller can close it.
func (s *SessionIndex) Bind(
	handle domain.ConnHandle,
	meeting domain.MeetingID,
	user domain.UserID,
	conn core.SignalConn,
	cancel context.CancelFunc,
) (superseded core.SignalConn, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{meeting: meeting, user: user}
	if old, exists := s.byMember[key]; exists && old != handle {
		if e, found := s.byHandle[old]; found {
			superseded = e.Conn
			ok = true
			if e.Cancel != nil {
				e.Cancel()
			}
			delete(s.byHandle, old)
		}
	}

	s.byHandle[handle] = &indexEntry{Meeting: meeting, User: user, Conn: conn, Cancel: cancel}
	s.byMember[key] = handle
	log.Info().Str("module", "app.index").Str("handle", string(handle)).
		Str("meeting", string(meeting)).Str("user", string(user)).Msg("bound session")
	return superseded, ok
}

// Resolve returns the membership a handle currently represents.
func (s *SessionIndex) Resolve(handle domain.ConnHandle) (domain.MeetingID, domain.UserID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byHandle[handle]
	if !ok {
		return "", "", false
	}
	return e.Meeting, e.User, true
}

// ConnOf looks up the live connection for a meeting member.
func (s *SessionIndex) ConnOf(meeting domain.MeetingID, user domain.UserID) (core.SignalConn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	handle, ok := s.byMember[memberKey{meeting: meeting, user: user}]
	if !ok {
		return nil, false
	}
	e, ok := s.byHandle[handle]
	if !ok {
		return nil, false
	}
	return e.Conn, true
}

// HandleOf returns the handle currently indexed for a member.
func (s *SessionIndex) HandleOf(meeting domain.MeetingID, user domain.UserID) (domain.ConnHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	handle, ok := s.byMember[memberKey{meeting: meeting, user: user}]
	return handle, ok
}

type memberSnap struct {
	Handle domain.ConnHandle
	User   domain.UserID
	Conn   core.SignalConn
}

// MembersOf snapshots the connected members of one meeting.
func (s *SessionIndex) MembersOf(meeting domain.MeetingID) []memberSnap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]memberSnap, 0, len(s.byHandle))
	for handle, e := range s.byHandle {
		if e.Meeting == meeting {
			out = append(out, memberSnap{Handle: handle, User: e.User, Conn: e.Conn})
		}
	}
	return out
}

// Unbind drops a handle. Idempotent: unbinding an absent handle is a
// no-op.
func (s *SessionIndex) Unbind(handle domain.ConnHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byHandle[handle]
	if !ok {
		return
	}
	key := memberKey{meeting: e.Meeting, user: e.User}
	if s.byMember[key] == handle {
		delete(s.byMember, key)
	}
	delete(s.byHandle, handle)
	log.Info().Str("module", "app.index").Str("handle", string(handle)).Msg("unbound session")
}

// DropMeeting removes every entry of a meeting, returning the dropped
// handles. Connections are left open; callers decide their fate.
func (s *SessionIndex) DropMeeting(meeting domain.MeetingID) []domain.ConnHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dropped []domain.ConnHandle
	for handle, e := range s.byHandle {
		if e.Meeting != meeting {
			continue
		}
		delete(s.byMember, memberKey{meeting: e.Meeting, user: e.User})
		delete(s.byHandle, handle)
		dropped = append(dropped, handle)
	}
	return dropped
}

// Cancel fires the context cancel bound to a handle, if any.
func (s *SessionIndex) Cancel(handle domain.ConnHandle) bool {
	s.mu.RLock()
	e, ok := s.byHandle[handle]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	return true
}
