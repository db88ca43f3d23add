package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a block.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrTagMismatch indicates a block whose header and footer disagree.
	ErrTagMismatch = errors.New("format: header/footer mismatch")
	// ErrBadSize indicates a tag carrying a size that no block can have.
	ErrBadSize = errors.New("format: invalid block size")
)
