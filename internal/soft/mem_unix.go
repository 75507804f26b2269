//go:build unix && !linux

package soft

import (
	"errors"

	"golang.org/x/sys/unix"
)

var errLargePages = errors.New("soft: large pages are only mapped on linux")

type region struct {
	mapped []byte
	b      []byte
}

func newRegion(size int, largePages bool) (*region, error) {
	if largePages {
		return nil, errLargePages
	}
	m, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	return &region{mapped: m, b: m}, nil
}

func (r *region) free() error {
	if r == nil || r.mapped == nil {
		return nil
	}
	err := unix.Munmap(r.mapped)
	r.mapped, r.b = nil, nil
	return err
}
