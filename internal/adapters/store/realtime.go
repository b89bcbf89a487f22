package store

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aakashbhandari1000/Meeting/internal/core"
)

const subscriptionBuffer = 64

// Realtime is an in-memory key-path pub/sub store. Values live in a
// path tree; subscribers of a path observe child additions/removals
// directly under it and value changes at it.
type Realtime struct {
	mu     sync.RWMutex
	values map[string]any
	subs   map[string]map[*realtimeSub]struct{}
}

func NewRealtime() *Realtime {
	return &Realtime{
		values: make(map[string]any),
		subs:   make(map[string]map[*realtimeSub]struct{}),
	}
}

type realtimeSub struct {
	store  *Realtime
	path   string
	events chan core.Event
	once   sync.Once
}

func (s *realtimeSub) Events() <-chan core.Event { return s.events }

// Cancel is idempotent and safe to call from teardown.
func (s *realtimeSub) Cancel() {
	s.once.Do(func() {
		s.store.mu.Lock()
		if set, ok := s.store.subs[s.path]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(s.store.subs, s.path)
			}
		}
		s.store.mu.Unlock()
		close(s.events)
	})
}

func (r *Realtime) WriteAt(path string, value any) error {
	r.mu.Lock()
	existed := false
	if _, ok := r.values[path]; ok {
		existed = true
	}
	r.values[path] = value
	r.mu.Unlock()

	if parent, key := splitPath(path); !existed && parent != "" {
		r.notify(parent, core.Event{Op: core.ChildAdded, Key: key, Value: value})
	}
	r.notify(path, core.Event{Op: core.ValueChanged, Key: lastSegment(path), Value: value})
	return nil
}

func (r *Realtime) PushAt(path string, value any) (string, error) {
	key := uuid.NewString()
	r.mu.Lock()
	r.values[path+"/"+key] = value
	r.mu.Unlock()
	r.notify(path, core.Event{Op: core.ChildAdded, Key: key, Value: value})
	return key, nil
}

func (r *Realtime) RemoveAt(path string) error {
	r.mu.Lock()
	value, existed := r.values[path]
	delete(r.values, path)
	// Subtree removal: a removed parent takes its children with it.
	prefix := path + "/"
	for p := range r.values {
		if strings.HasPrefix(p, prefix) {
			delete(r.values, p)
		}
	}
	r.mu.Unlock()

	if !existed {
		return nil
	}
	if parent, key := splitPath(path); parent != "" {
		r.notify(parent, core.Event{Op: core.ChildRemoved, Key: key, Value: value})
	}
	return nil
}

func (r *Realtime) Subscribe(path string) (core.Subscription, error) {
	sub := &realtimeSub{
		store:  r,
		path:   path,
		events: make(chan core.Event, subscriptionBuffer),
	}
	r.mu.Lock()
	set, ok := r.subs[path]
	if !ok {
		set = make(map[*realtimeSub]struct{})
		r.subs[path] = set
	}
	set[sub] = struct{}{}
	r.mu.Unlock()
	return sub, nil
}

// ValueAt is a read helper for tests and admin surfaces.
func (r *Realtime) ValueAt(path string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[path]
	return v, ok
}

// ChildrenAt lists direct child keys under path.
func (r *Realtime) ChildrenAt(path string) map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any)
	prefix := path + "/"
	for p, v := range r.values {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if !strings.Contains(rest, "/") {
			out[rest] = v
		}
	}
	return out
}

// notify delivers under the store lock so sends are serialized against
// Cancel closing the channel. Delivery never blocks: a slow consumer
// drops events rather than stalling writers.
func (r *Realtime) notify(path string, ev core.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for s := range r.subs[path] {
		select {
		case s.events <- ev:
		default:
			log.Warn().Str("module", "store.realtime").Str("path", path).Msg("subscriber event dropped")
		}
	}
}

func splitPath(path string) (parent, key string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

func lastSegment(path string) string {
	_, key := splitPath(path)
	return key
}
