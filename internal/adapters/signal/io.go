package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/aakashbhandari1000/Meeting/internal/core"
	"github.com/aakashbhandari1000/Meeting/internal/protocol"
)

const writeTimeout = 5 * time.Second

func (s *session) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-s.conn.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := s.conn.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := s.conn.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (s *session) readPump(ctx context.Context) {
	defer func() {
		log.Info().Str("module", "signal").Str("handle", string(s.handle)).Msg("readPump closing")
		s.ctl.Coord.Disconnect(context.Background(), s.handle)
		s.cancel()
		s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("handle", string(s.handle)).Msg("readPump ctx done")
			return
		default:
			_, data, err := s.conn.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("handle", string(s.handle)).Msg("readPump read error")
				return
			}
			s.dispatch(ctx, data)
		}
	}
}

func (s *session) dispatch(ctx context.Context, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("handle", string(s.handle)).Msg("bad envelope")
		s.sendEnvelope(protocol.Envelope{Kind: protocol.KindError, Error: "bad_payload"})
		return
	}

	switch env.Kind {
	case protocol.KindJoinMeeting:
		s.handleJoin(ctx, env)
	case protocol.KindLeaveMeeting:
		s.handleLeave(ctx)
	case protocol.KindOffer, protocol.KindAnswer, protocol.KindICECandidate:
		s.ctl.Coord.Relay(s.handle, env)
	case protocol.KindMuteParticipant, protocol.KindRemoveParticipant, protocol.KindAdmitParticipant:
		s.handleHostControl(ctx, env)
	case protocol.KindEndMeeting:
		s.handleEndMeeting(ctx)
	case protocol.KindChatMessage:
		s.handleChat(ctx, env)
	case protocol.KindReaction:
		s.handleReaction(ctx, env)
	case protocol.KindPing:
		s.sendEnvelope(protocol.Envelope{Kind: protocol.KindPong})
	default:
		log.Warn().Str("module", "signal").Str("kind", string(env.Kind)).Msg("unexpected envelope kind")
	}
}

func (s *session) sendEnvelope(env protocol.Envelope) {
	b, err := env.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendEnvelope encode")
		return
	}
	_ = s.conn.TrySend(core.Frame(b))
}
