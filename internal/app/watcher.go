package app

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/aakashbhandari1000/Meeting/internal/core"
	"github.com/aakashbhandari1000/Meeting/internal/domain"
)

// RoomWatcher tails one meeting's realtime subtree and logs membership
// and waiting-room churn. It is the server's own consumer of the
// subscription feed; browser clients hold their own subscriptions.
type RoomWatcher struct {
	meetingID domain.MeetingID
	subs      []core.Subscription
	seen      atomic.Uint64
}

// WatchRoom subscribes to the participants and waiting areas of a
// meeting. Stop the watcher when the meeting ends.
func WatchRoom(rt core.RealtimeStore, meetingID domain.MeetingID) (*RoomWatcher, error) {
	w := &RoomWatcher{meetingID: meetingID}
	for _, area := range []string{"participants", "waiting"} {
		sub, err := rt.Subscribe(roomPath(meetingID) + "/" + area)
		if err != nil {
			w.Stop()
			return nil, err
		}
		w.subs = append(w.subs, sub)
		go w.tail(area, sub)
	}
	return w, nil
}

func (w *RoomWatcher) tail(area string, sub core.Subscription) {
	for ev := range sub.Events() {
		w.seen.Add(1)
		log.Info().Str("module", "app.watcher").Str("meeting", string(w.meetingID)).
			Str("area", area).Str("op", string(ev.Op)).Str("key", ev.Key).Msg("room event")
	}
}

// Seen reports how many events the watcher has observed so far.
func (w *RoomWatcher) Seen() uint64 { return w.seen.Load() }

// Stop cancels the subscriptions, which ends the tail goroutines.
// Idempotent.
func (w *RoomWatcher) Stop() {
	for _, sub := range w.subs {
		sub.Cancel()
	}
}
