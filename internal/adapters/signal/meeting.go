package signal

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/aakashbhandari1000/Meeting/internal/core"
	"github.com/aakashbhandari1000/Meeting/internal/protocol"
)

func (s *session) handleJoin(ctx context.Context, env protocol.Envelope) {
	displayName := env.DisplayName
	if displayName == "" {
		displayName = string(env.UserID)
	}

	res, err := s.ctl.Coord.Join(ctx, env.MeetingID, env.UserID, displayName, s.handle, s.conn, s.cancel)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("meeting", string(env.MeetingID)).
			Str("user", string(env.UserID)).Msg("join failed")
		reason := "join_failed"
		if errors.Is(err, core.ErrNotFound) {
			reason = "meeting_not_found"
		}
		s.sendEnvelope(protocol.Envelope{Kind: protocol.KindError, Error: reason})
		return
	}
	if res.Waiting {
		s.sendEnvelope(protocol.Envelope{
			Kind:   protocol.KindWaiting,
			UserID: env.UserID,
		})
		return
	}

	log.Info().Str("module", "signal").Str("handle", string(s.handle)).
		Str("meeting", string(env.MeetingID)).Str("user", string(env.UserID)).Msg("joined meeting")

	// The joiner's own snapshot; everyone else was notified by the
	// coordinator's broadcast.
	s.sendEnvelope(protocol.Envelope{
		Kind:         protocol.KindParticipantJoined,
		MeetingID:    env.MeetingID,
		UserID:       env.UserID,
		DisplayName:  displayName,
		IsHost:       res.IsHost,
		Participants: res.Participants,
	})
}

func (s *session) handleLeave(ctx context.Context) {
	log.Info().Str("module", "signal").Str("handle", string(s.handle)).Msg("leave")
	s.ctl.Coord.Leave(ctx, s.handle)
}
