// Package app owns the server-side signaling core: authoritative
// meeting membership, point-to-point signal routing and host privilege
// enforcement.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aakashbhandari1000/Meeting/internal/core"
	"github.com/aakashbhandari1000/Meeting/internal/domain"
	"github.com/aakashbhandari1000/Meeting/internal/protocol"
)

const collectionMeetings = "meetings"

type waitingEntry struct {
	Handle      domain.ConnHandle
	Conn        core.SignalConn
	DisplayName string
}

// Coordinator serializes all mutations of a meeting's membership under
// a per-meeting mutex; routing between different meetings proceeds
// concurrently. Nothing here is a process-wide singleton: handlers get
// the coordinator by reference.
type Coordinator struct {
	Index    *SessionIndex
	Docs     core.DocumentStore
	Realtime core.RealtimeStore
	Policy   Policy

	mu       sync.Mutex
	locks    map[domain.MeetingID]*sync.Mutex
	waiting  map[domain.MeetingID]map[domain.UserID]waitingEntry
	watchers map[domain.MeetingID]*RoomWatcher
}

func NewCoordinator(index *SessionIndex, docs core.DocumentStore, rt core.RealtimeStore, policy Policy) *Coordinator {
	return &Coordinator{
		Index:    index,
		Docs:     docs,
		Realtime: rt,
		Policy:   policy,
		locks:    make(map[domain.MeetingID]*sync.Mutex),
		waiting:  make(map[domain.MeetingID]map[domain.UserID]waitingEntry),
		watchers: make(map[domain.MeetingID]*RoomWatcher),
	}
}

// lockFor returns the serialization mutex of one meeting. Lock scope is
// per meeting, not global: holding it never blocks other meetings.
func (c *Coordinator) lockFor(id domain.MeetingID) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	mu, ok := c.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		c.locks[id] = mu
	}
	return mu
}

// CreateMeeting persists a fresh meeting record and returns its id.
func (c *Coordinator) CreateMeeting(ctx context.Context, host domain.UserID, settings domain.Settings) (domain.MeetingID, error) {
	id := domain.MeetingID(uuid.NewString())
	meeting := domain.NewMeeting(id, host, settings)
	doc, err := toDoc(meeting)
	if err != nil {
		return "", fmt.Errorf("encode meeting: %w", err)
	}
	if err := c.Docs.Set(ctx, collectionMeetings, string(id), doc); err != nil {
		return "", err
	}
	if watcher, err := WatchRoom(c.Realtime, id); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Str("meeting", string(id)).Msg("room watch failed")
	} else {
		c.mu.Lock()
		c.watchers[id] = watcher
		c.mu.Unlock()
	}
	log.Info().Str("module", "app.coordinator").Str("meeting", string(id)).Str("host", string(host)).Msg("meeting created")
	return id, nil
}

// MeetingDoc returns the raw stored record, for the REST surface.
func (c *Coordinator) MeetingDoc(ctx context.Context, id domain.MeetingID) (core.Document, error) {
	return c.Docs.Get(ctx, collectionMeetings, string(id))
}

// JoinResult is what a joiner learns about the meeting it entered.
type JoinResult struct {
	IsHost       bool
	Waiting      bool
	Participants []protocol.ParticipantInfo
}

// Join adds (or supersedes) the participant record for userID, indexes
// the connection handle and tells every other member. Fails with
// ErrNotFound when the meeting is absent. When the waiting room is on
// and the joiner is not the host, the join parks until the host admits.
func (c *Coordinator) Join(
	ctx context.Context,
	meetingID domain.MeetingID,
	userID domain.UserID,
	displayName string,
	handle domain.ConnHandle,
	conn core.SignalConn,
	cancel context.CancelFunc,
) (JoinResult, error) {
	mu := c.lockFor(meetingID)
	mu.Lock()
	res, slow, err := c.joinLocked(ctx, meetingID, userID, displayName, handle, conn, cancel)
	mu.Unlock()
	c.applyBackpressure(meetingID, slow)
	return res, err
}

func (c *Coordinator) joinLocked(
	ctx context.Context,
	meetingID domain.MeetingID,
	userID domain.UserID,
	displayName string,
	handle domain.ConnHandle,
	conn core.SignalConn,
	cancel context.CancelFunc,
) (JoinResult, []memberSnap, error) {
	meeting, err := c.getMeeting(ctx, meetingID)
	if err != nil {
		return JoinResult{}, nil, err
	}
	isHost := meeting.IsHost(userID)

	if meeting.Settings.WaitingRoom && !isHost {
		c.parkWaiting(meeting, userID, displayName, handle, conn)
		return JoinResult{Waiting: true}, nil, nil
	}

	res, slow, err := c.completeJoinLocked(ctx, meeting, userID, displayName, handle, conn, cancel)
	return res, slow, err
}

func (c *Coordinator) completeJoinLocked(
	ctx context.Context,
	meeting *domain.Meeting,
	userID domain.UserID,
	displayName string,
	handle domain.ConnHandle,
	conn core.SignalConn,
	cancel context.CancelFunc,
) (JoinResult, []memberSnap, error) {
	role := domain.RoleParticipant
	if meeting.IsHost(userID) {
		role = domain.RoleHost
	}
	participant := domain.Participant{
		ID:           userID,
		DisplayName:  displayName,
		Role:         role,
		Conn:         handle,
		AudioEnabled: !meeting.Settings.MuteOnJoin,
		VideoEnabled: true,
		JoinedAt:     time.Now().UTC(),
	}
	pdoc, err := toDoc(participant)
	if err != nil {
		return JoinResult{}, nil, fmt.Errorf("encode participant: %w", err)
	}
	patch := map[string]any{"participants." + string(userID): map[string]any(pdoc)}
	if err := c.Docs.Update(ctx, collectionMeetings, string(meeting.ID), patch); err != nil {
		return JoinResult{}, nil, err
	}

	if superseded, ok := c.Index.Bind(handle, meeting.ID, userID, conn, cancel); ok {
		// Last-writer-wins: the newer connection represents the
		// participant from here on.
		superseded.Close()
		log.Info().Str("module", "app.coordinator").Str("meeting", string(meeting.ID)).
			Str("user", string(userID)).Msg("superseded previous connection")
	}

	if err := c.Realtime.WriteAt(presencePath(meeting.ID, userID), map[string]any(pdoc)); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Msg("presence write failed")
	}

	meeting.Participants[userID] = participant

	slow := c.broadcastLocked(meeting.ID, userID, protocol.Envelope{
		Kind:        protocol.KindParticipantJoined,
		UserID:      userID,
		DisplayName: displayName,
		IsHost:      role == domain.RoleHost,
	})

	return JoinResult{
		IsHost:       role == domain.RoleHost,
		Participants: participantsInfo(meeting),
	}, slow, nil
}

// Relay forwards an offer/answer/ice-candidate envelope to its single
// addressee. A target with no live connection is a race, not an error:
// the envelope is dropped silently. Relay never broadcasts and never
// takes the meeting lock, so routing for different meetings (and within
// one meeting) proceeds concurrently.
func (c *Coordinator) Relay(handle domain.ConnHandle, env protocol.Envelope) {
	switch env.Kind {
	case protocol.KindOffer, protocol.KindAnswer, protocol.KindICECandidate:
	default:
		return
	}
	meetingID, senderID, ok := c.Index.Resolve(handle)
	if !ok {
		return
	}
	conn, ok := c.Index.ConnOf(meetingID, env.TargetUserID)
	if !ok {
		log.Debug().Str("module", "app.coordinator").Str("meeting", string(meetingID)).
			Str("target", string(env.TargetUserID)).Str("kind", string(env.Kind)).Msg("relay target absent, dropped")
		return
	}
	env.UserID = senderID
	env.MeetingID = meetingID
	frame, err := env.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("relay encode")
		return
	}
	if err := conn.TrySend(core.Frame(frame)); err != nil {
		log.Debug().Err(err).Str("module", "app.coordinator").Str("target", string(env.TargetUserID)).Msg("relay send failed")
	}
}

// HostControl executes a privileged operation. Non-host requesters get
// ErrForbidden and no state changes; callers drop it silently.
func (c *Coordinator) HostControl(
	ctx context.Context,
	kind protocol.Kind,
	requesterID domain.UserID,
	meetingID domain.MeetingID,
	targetID domain.UserID,
) error {
	mu := c.lockFor(meetingID)
	mu.Lock()
	slow, err := c.hostControlLocked(ctx, kind, requesterID, meetingID, targetID)
	mu.Unlock()
	c.applyBackpressure(meetingID, slow)
	return err
}

func (c *Coordinator) hostControlLocked(
	ctx context.Context,
	kind protocol.Kind,
	requesterID domain.UserID,
	meetingID domain.MeetingID,
	targetID domain.UserID,
) ([]memberSnap, error) {
	meeting, err := c.getMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !meeting.IsHost(requesterID) {
		log.Warn().Str("module", "app.coordinator").Str("meeting", string(meetingID)).
			Str("requester", string(requesterID)).Str("kind", string(kind)).Msg("host control denied")
		return nil, core.ErrForbidden
	}

	switch kind {
	case protocol.KindMuteParticipant:
		return c.muteLocked(ctx, meeting, targetID)
	case protocol.KindRemoveParticipant:
		return c.removeLocked(ctx, meeting, targetID)
	case protocol.KindAdmitParticipant:
		return c.admitLocked(ctx, meeting, targetID)
	default:
		return nil, fmt.Errorf("unsupported host control %q", kind)
	}
}

func (c *Coordinator) muteLocked(ctx context.Context, meeting *domain.Meeting, targetID domain.UserID) ([]memberSnap, error) {
	if conn, ok := c.Index.ConnOf(meeting.ID, targetID); ok {
		c.sendEnvelope(conn, protocol.Envelope{Kind: protocol.KindMuteAudio})
	}
	patch := map[string]any{"participants." + string(targetID) + ".audioEnabled": false}
	if err := c.Docs.Update(ctx, collectionMeetings, string(meeting.ID), patch); err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	slow := c.broadcastLocked(meeting.ID, "", protocol.Envelope{
		Kind:   protocol.KindParticipantMuted,
		UserID: targetID,
	})
	return slow, nil
}

func (c *Coordinator) removeLocked(ctx context.Context, meeting *domain.Meeting, targetID domain.UserID) ([]memberSnap, error) {
	// A target still parked in the waiting room never joined the roster;
	// drop the entry and its pending marker instead of broadcasting.
	if entry, ok := c.popWaiting(meeting.ID, targetID); ok {
		if err := c.Realtime.RemoveAt(waitingPath(meeting.ID, targetID)); err != nil {
			log.Warn().Err(err).Str("module", "app.coordinator").Msg("waiting marker remove failed")
		}
		c.sendEnvelope(entry.Conn, protocol.Envelope{Kind: protocol.KindRemoved})
		entry.Conn.Close()
		return nil, nil
	}

	conn, connected := c.Index.ConnOf(meeting.ID, targetID)
	if connected {
		c.sendEnvelope(conn, protocol.Envelope{Kind: protocol.KindRemoved})
	}
	patch := map[string]any{"participants." + string(targetID): core.DeleteField{}}
	if err := c.Docs.Update(ctx, collectionMeetings, string(meeting.ID), patch); err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	if handle, ok := c.Index.HandleOf(meeting.ID, targetID); ok {
		c.Index.Unbind(handle)
	}
	if connected {
		conn.Close()
	}
	if err := c.Realtime.RemoveAt(presencePath(meeting.ID, targetID)); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Msg("presence remove failed")
	}
	slow := c.broadcastLocked(meeting.ID, "", protocol.Envelope{
		Kind:   protocol.KindParticipantRemoved,
		UserID: targetID,
	})
	return slow, nil
}

func (c *Coordinator) admitLocked(ctx context.Context, meeting *domain.Meeting, targetID domain.UserID) ([]memberSnap, error) {
	entry, ok := c.popWaiting(meeting.ID, targetID)
	if !ok {
		return nil, nil
	}
	if err := c.Realtime.WriteAt(waitingPath(meeting.ID, targetID), "approved"); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Msg("waiting approval write failed")
	}
	res, slow, err := c.completeJoinLocked(ctx, meeting, targetID, entry.DisplayName, entry.Handle, entry.Conn, nil)
	if err != nil {
		return slow, err
	}
	// The parked joiner gets the snapshot it would have received from a
	// direct join.
	c.sendEnvelope(entry.Conn, protocol.Envelope{
		Kind:         protocol.KindParticipantJoined,
		UserID:       targetID,
		DisplayName:  entry.DisplayName,
		IsHost:       res.IsHost,
		Participants: res.Participants,
	})
	return slow, nil
}

// EndMeeting is host-only and terminal: the record is deleted and the
// meeting cannot be resumed.
func (c *Coordinator) EndMeeting(ctx context.Context, requesterID domain.UserID, meetingID domain.MeetingID) error {
	mu := c.lockFor(meetingID)
	mu.Lock()
	defer mu.Unlock()

	meeting, err := c.getMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	if !meeting.IsHost(requesterID) {
		return core.ErrForbidden
	}
	return c.endMeetingLocked(ctx, meetingID)
}

func (c *Coordinator) endMeetingLocked(ctx context.Context, meetingID domain.MeetingID) error {
	slow := c.broadcastLocked(meetingID, "", protocol.Envelope{Kind: protocol.KindMeetingEnded})
	if err := c.Docs.Delete(ctx, collectionMeetings, string(meetingID)); err != nil && !errors.Is(err, core.ErrNotFound) {
		return err
	}
	if err := c.Realtime.RemoveAt(roomPath(meetingID)); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Msg("room remove failed")
	}
	c.Index.DropMeeting(meetingID)
	// The meeting is gone, so the backpressure policy has nothing left
	// to decide; close the connections that could not take the frame.
	for _, m := range slow {
		m.Conn.Close()
	}

	c.mu.Lock()
	watcher := c.watchers[meetingID]
	delete(c.watchers, meetingID)
	delete(c.waiting, meetingID)
	delete(c.locks, meetingID)
	c.mu.Unlock()
	if watcher != nil {
		watcher.Stop()
	}

	log.Info().Str("module", "app.coordinator").Str("meeting", string(meetingID)).Msg("meeting ended")
	return nil
}

// Leave removes the member a handle represents and tells the meeting.
// Idempotent: a handle that resolved to nothing is a no-op, never an
// error. Host departure ends the meeting (host-failure policy).
func (c *Coordinator) Leave(ctx context.Context, handle domain.ConnHandle) {
	meetingID, _, ok := c.Index.Resolve(handle)
	if !ok {
		c.dropWaitingByHandle(handle)
		return
	}

	mu := c.lockFor(meetingID)
	mu.Lock()
	slow := c.leaveLocked(ctx, meetingID, handle)
	mu.Unlock()
	c.applyBackpressure(meetingID, slow)
}

func (c *Coordinator) leaveLocked(ctx context.Context, meetingID domain.MeetingID, handle domain.ConnHandle) []memberSnap {
	// Re-resolve under the lock: a concurrent leave may have won.
	gotMeeting, userID, ok := c.Index.Resolve(handle)
	if !ok || gotMeeting != meetingID {
		return nil
	}
	c.Index.Unbind(handle)

	meeting, err := c.getMeeting(ctx, meetingID)
	if err != nil {
		// Meeting already gone; index entry was stale cache.
		return nil
	}

	patch := map[string]any{"participants." + string(userID): core.DeleteField{}}
	if err := c.Docs.Update(ctx, collectionMeetings, string(meetingID), patch); err != nil && !errors.Is(err, core.ErrNotFound) {
		log.Warn().Err(err).Str("module", "app.coordinator").Msg("participant record removal failed")
	}
	if err := c.Realtime.RemoveAt(presencePath(meetingID, userID)); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Msg("presence remove failed")
	}

	slow := c.broadcastLocked(meetingID, userID, protocol.Envelope{
		Kind:   protocol.KindParticipantLeft,
		UserID: userID,
	})

	if meeting.IsHost(userID) {
		// The meeting does not survive host departure.
		if err := c.endMeetingLocked(ctx, meetingID); err != nil {
			log.Error().Err(err).Str("module", "app.coordinator").Str("meeting", string(meetingID)).Msg("end on host leave failed")
		}
	}
	return slow
}

// Disconnect is Leave triggered by transport teardown.
func (c *Coordinator) Disconnect(ctx context.Context, handle domain.ConnHandle) {
	c.Leave(ctx, handle)
}

// Chat fans a message out to the meeting with the sender's display name
// attached, persisting it as an appended entry. Disabled chat drops the
// message silently: stored nowhere, broadcast to no one, no error.
func (c *Coordinator) Chat(ctx context.Context, handle domain.ConnHandle, body string) error {
	meetingID, senderID, ok := c.Index.Resolve(handle)
	if !ok {
		return nil
	}

	mu := c.lockFor(meetingID)
	mu.Lock()
	slow, err := c.chatLocked(ctx, meetingID, senderID, body)
	mu.Unlock()
	c.applyBackpressure(meetingID, slow)
	return err
}

func (c *Coordinator) chatLocked(ctx context.Context, meetingID domain.MeetingID, senderID domain.UserID, body string) ([]memberSnap, error) {
	meeting, err := c.getMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !meeting.Settings.AllowChat {
		log.Debug().Str("module", "app.coordinator").Str("meeting", string(meetingID)).Msg("chat disabled, dropped")
		return nil, nil
	}
	sender, ok := meeting.Participants[senderID]
	if !ok {
		return nil, nil
	}
	entry := domain.ChatEntry{
		UserID:      senderID,
		DisplayName: sender.DisplayName,
		Body:        body,
		SentAt:      time.Now().UTC(),
	}
	entryDoc, err := toDoc(entry)
	if err != nil {
		return nil, fmt.Errorf("encode chat entry: %w", err)
	}
	if _, err := c.Realtime.PushAt(chatPath(meetingID), map[string]any(entryDoc)); err != nil {
		return nil, err
	}
	slow := c.broadcastLocked(meetingID, "", protocol.Envelope{
		Kind:        protocol.KindChatMessage,
		UserID:      senderID,
		DisplayName: sender.DisplayName,
		Message:     body,
		Timestamp:   entry.SentAt.UnixMilli(),
	})
	return slow, nil
}

// Reaction appends an emoji reaction and fans it out. No permission
// gate; reactions are ephemeral color.
func (c *Coordinator) Reaction(ctx context.Context, handle domain.ConnHandle, reaction string) error {
	meetingID, senderID, ok := c.Index.Resolve(handle)
	if !ok {
		return nil
	}
	mu := c.lockFor(meetingID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := c.Realtime.PushAt(reactionsPath(meetingID), map[string]any{
		"userId":    string(senderID),
		"reaction":  reaction,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}
	c.broadcastLocked(meetingID, "", protocol.Envelope{
		Kind:     protocol.KindReaction,
		UserID:   senderID,
		Reaction: reaction,
	})
	return nil
}

// broadcastLocked fans env to every connected member except `except`.
// Callers hold the meeting lock, so join/leave broadcasts reach members
// in the order mutations were processed.
func (c *Coordinator) broadcastLocked(meetingID domain.MeetingID, except domain.UserID, env protocol.Envelope) []memberSnap {
	env.MeetingID = meetingID
	frame, err := env.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("broadcast encode")
		return nil
	}
	var slow []memberSnap
	for _, m := range c.Index.MembersOf(meetingID) {
		if except != "" && m.User == except {
			continue
		}
		if err := m.Conn.TrySend(core.Frame(frame)); err != nil {
			slow = append(slow, m)
		}
	}
	return slow
}

// applyBackpressure runs outside the meeting lock: disconnecting a slow
// member re-enters Leave, which takes the lock itself.
func (c *Coordinator) applyBackpressure(meetingID domain.MeetingID, slow []memberSnap) {
	if c.Policy == nil {
		return
	}
	for _, m := range slow {
		switch c.Policy.OnBackpressure(meetingID, m.User) {
		case DisconnectMember:
			log.Warn().Str("module", "app.coordinator").Str("meeting", string(meetingID)).
				Str("user", string(m.User)).Msg("disconnecting slow member")
			c.Leave(context.Background(), m.Handle)
			m.Conn.Close()
		case NoAction, DropFrame:
		}
	}
}

func (c *Coordinator) sendEnvelope(conn core.SignalConn, env protocol.Envelope) {
	frame, err := env.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("send encode")
		return
	}
	_ = conn.TrySend(core.Frame(frame))
}

func (c *Coordinator) parkWaiting(meeting *domain.Meeting, userID domain.UserID, displayName string, handle domain.ConnHandle, conn core.SignalConn) {
	c.mu.Lock()
	byUser, ok := c.waiting[meeting.ID]
	if !ok {
		byUser = make(map[domain.UserID]waitingEntry)
		c.waiting[meeting.ID] = byUser
	}
	byUser[userID] = waitingEntry{Handle: handle, Conn: conn, DisplayName: displayName}
	c.mu.Unlock()

	if err := c.Realtime.WriteAt(waitingPath(meeting.ID, userID), "pending"); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Msg("waiting write failed")
	}
	if hostConn, ok := c.Index.ConnOf(meeting.ID, meeting.Host); ok {
		c.sendEnvelope(hostConn, protocol.Envelope{
			Kind:        protocol.KindWaiting,
			UserID:      userID,
			DisplayName: displayName,
		})
	}
	log.Info().Str("module", "app.coordinator").Str("meeting", string(meeting.ID)).
		Str("user", string(userID)).Msg("parked in waiting room")
}

func (c *Coordinator) popWaiting(meetingID domain.MeetingID, userID domain.UserID) (waitingEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.waiting[meetingID][userID]
	if ok {
		delete(c.waiting[meetingID], userID)
	}
	return entry, ok
}

func (c *Coordinator) dropWaitingByHandle(handle domain.ConnHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for meetingID, byUser := range c.waiting {
		for userID, entry := range byUser {
			if entry.Handle == handle {
				delete(byUser, userID)
				log.Debug().Str("module", "app.coordinator").Str("meeting", string(meetingID)).
					Str("user", string(userID)).Msg("dropped waiting entry")
			}
		}
	}
}

func (c *Coordinator) getMeeting(ctx context.Context, id domain.MeetingID) (*domain.Meeting, error) {
	doc, err := c.Docs.Get(ctx, collectionMeetings, string(id))
	if err != nil {
		return nil, err
	}
	var meeting domain.Meeting
	if err := fromDoc(doc, &meeting); err != nil {
		return nil, fmt.Errorf("decode meeting %s: %w", id, err)
	}
	if meeting.Participants == nil {
		meeting.Participants = make(map[domain.UserID]domain.Participant)
	}
	return &meeting, nil
}

func participantsInfo(meeting *domain.Meeting) []protocol.ParticipantInfo {
	out := make([]protocol.ParticipantInfo, 0, len(meeting.Participants))
	for _, p := range meeting.Participants {
		out = append(out, protocol.ParticipantInfo{
			UserID:       p.ID,
			DisplayName:  p.DisplayName,
			IsHost:       p.Role == domain.RoleHost,
			AudioEnabled: p.AudioEnabled,
			VideoEnabled: p.VideoEnabled,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func roomPath(id domain.MeetingID) string { return "rooms/" + string(id) }
func presencePath(id domain.MeetingID, user domain.UserID) string {
	return roomPath(id) + "/participants/" + string(user)
}
func chatPath(id domain.MeetingID) string      { return roomPath(id) + "/chat" }
func reactionsPath(id domain.MeetingID) string { return roomPath(id) + "/reactions" }
func waitingPath(id domain.MeetingID, user domain.UserID) string {
	return roomPath(id) + "/waiting/" + string(user)
}

func toDoc(v any) (core.Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc core.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDoc(doc core.Document, v any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
