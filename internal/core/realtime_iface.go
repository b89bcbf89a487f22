package core

// EventOp discriminates realtime change events.
type EventOp string

const (
	ChildAdded   EventOp = "child-added"
	ChildRemoved EventOp = "child-removed"
	ValueChanged EventOp = "value-changed"
)

// Event is one change observed under a subscribed path.
type Event struct {
	Op    EventOp
	Key   string
	Value any
}

// Subscription delivers change events for one path on Events until
// Cancel. Cancel is idempotent and safe to call from teardown; after
// Cancel the Events channel is closed.
type Subscription interface {
	Events() <-chan Event
	Cancel()
}

// RealtimeStore is a key-path based live synchronization store.
// Paths are slash-separated, e.g. "rooms/m1/participants/u1".
type RealtimeStore interface {
	WriteAt(path string, value any) error
	// PushAt appends value under path with a generated key and returns it.
	PushAt(path string, value any) (string, error)
	RemoveAt(path string) error
	Subscribe(path string) (Subscription, error)
}
