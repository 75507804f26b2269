//go:build linux

package soft

import "golang.org/x/sys/unix"

const hugePageSize = 2 << 20

// region is an anonymous private mapping outside the Go heap.
type region struct {
	mapped []byte
	b      []byte
}

func newRegion(size int, largePages bool) (*region, error) {
	length := size
	flags := unix.MAP_PRIVATE | unix.MAP_ANONYMOUS
	if largePages {
		flags |= unix.MAP_HUGETLB
		length = (size + hugePageSize - 1) &^ (hugePageSize - 1)
	}
	m, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return nil, err
	}
	return &region{mapped: m, b: m[:size]}, nil
}

func (r *region) free() error {
	if r == nil || r.mapped == nil {
		return nil
	}
	err := unix.Munmap(r.mapped)
	r.mapped, r.b = nil, nil
	return err
}
