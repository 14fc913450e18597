// Package channel wraps Go channels behind small send/receive
// interfaces so the websocket sink can swap buffered and unbuffered
// behavior per build.
package channel

// Receiver is the read side of a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender is the write side. TrySend reports false instead of blocking
// when the buffer is full.
type Sender[T any] interface {
	Send(T)
	TrySend(T) bool
}

// Channel combines both sides with close semantics.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}
