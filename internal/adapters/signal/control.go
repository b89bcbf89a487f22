package signal

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/aakashbhandari1000/Meeting/internal/core"
	"github.com/aakashbhandari1000/Meeting/internal/protocol"
)

// handleHostControl trusts the connection, not the payload: the
// requester is whoever this handle is indexed as. Forbidden requests
// are dropped without a reply.
func (s *session) handleHostControl(ctx context.Context, env protocol.Envelope) {
	meetingID, requesterID, ok := s.ctl.Coord.Index.Resolve(s.handle)
	if !ok {
		return
	}
	err := s.ctl.Coord.HostControl(ctx, env.Kind, requesterID, meetingID, env.TargetUserID)
	if err != nil && !errors.Is(err, core.ErrForbidden) {
		log.Warn().Err(err).Str("module", "signal").Str("kind", string(env.Kind)).Msg("host control failed")
	}
}

func (s *session) handleEndMeeting(ctx context.Context) {
	meetingID, requesterID, ok := s.ctl.Coord.Index.Resolve(s.handle)
	if !ok {
		return
	}
	if err := s.ctl.Coord.EndMeeting(ctx, requesterID, meetingID); err != nil && !errors.Is(err, core.ErrForbidden) {
		log.Warn().Err(err).Str("module", "signal").Str("meeting", string(meetingID)).Msg("end meeting failed")
	}
}

func (s *session) handleChat(ctx context.Context, env protocol.Envelope) {
	if err := s.ctl.Coord.Chat(ctx, s.handle, env.Message); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("chat failed")
	}
}

func (s *session) handleReaction(ctx context.Context, env protocol.Envelope) {
	if err := s.ctl.Coord.Reaction(ctx, s.handle, env.Reaction); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("reaction failed")
	}
}
