//go:build !debug

package channel

// New returns the channel used in release builds: buffered, so the
// websocket writer absorbs bursts without stalling the pipeline.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](size)
}
