//go:build !unix

package mmfile

import "fmt"

// Reserve allocates size zeroed bytes on the Go heap when anonymous mappings
// are not available.
func Reserve(size int) ([]byte, func() error, error) {
	if size < 0 {
		return nil, nil, fmt.Errorf("mmfile: negative reservation (%d bytes)", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}
