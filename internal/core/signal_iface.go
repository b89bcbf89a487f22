package core

// Frame is a raw outbound payload (an encoded signal envelope).
type Frame []byte

// SignalConn abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConn interface {
	// TrySend queues a frame without blocking. Returns ErrBackpressure
	// when the peer is too slow and ErrConnClosed after Close.
	TrySend(Frame) error
	Close()
}
