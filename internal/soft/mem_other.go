//go:build !unix

package soft

import "errors"

var errLargePages = errors.New("soft: large pages are only mapped on linux")

// region falls back to heap memory where mmap is not available.
type region struct {
	b []byte
}

func newRegion(size int, largePages bool) (*region, error) {
	if largePages {
		return nil, errLargePages
	}
	return &region{b: make([]byte, size)}, nil
}

func (r *region) free() error {
	if r != nil {
		r.b = nil
	}
	return nil
}
