//go:build debug

package channel

// New returns an unbuffered channel under the debug tag, ignoring
// size, which makes send/receive ordering deterministic in tests.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
