package heap

import "errors"

var (
	// ErrExhausted indicates that growing the heap would exceed its maximum size.
	ErrExhausted = errors.New("heap: maximum heap size exceeded")

	// ErrClosed indicates use of a heap after Close.
	ErrClosed = errors.New("heap: closed")

	// ErrBadIncrement indicates a negative growth request.
	ErrBadIncrement = errors.New("heap: negative increment")
)
