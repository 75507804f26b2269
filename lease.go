package randomx

import "sync"

// lease tracks who holds a Cache or Dataset. Readers are bound VMs and
// dataset fills reading a cache; writers are dataset fills. Many readers or
// many writers may hold a lease at once, never both. Pins count readers
// with a pipelined hash in flight.
type lease struct {
	mu       sync.Mutex
	readers  int
	writers  int
	pins     int
	released bool
}

func (l *lease) borrow(op, what string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.released:
		return opError(op, KindReleased, "%s already released", what)
	case l.writers > 0:
		return opError(op, KindInUse, "%s is being initialized", what)
	}
	l.readers++
	return nil
}

func (l *lease) unborrow() {
	l.mu.Lock()
	l.readers--
	l.mu.Unlock()
}

func (l *lease) pin() {
	l.mu.Lock()
	l.pins++
	l.mu.Unlock()
}

func (l *lease) unpin() {
	l.mu.Lock()
	l.pins--
	l.mu.Unlock()
}

func (l *lease) pinned() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pins
}

func (l *lease) write(op, what string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.released:
		return opError(op, KindReleased, "%s already released", what)
	case l.readers > 0:
		return opError(op, KindInUse, "%s is bound to %d vm(s)", what, l.readers)
	}
	l.writers++
	return nil
}

func (l *lease) unwrite() {
	l.mu.Lock()
	l.writers--
	l.mu.Unlock()
}

// retire marks the lease released. It fails while anyone holds it.
func (l *lease) retire(op, what string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.released:
		return opError(op, KindReleased, "%s already released", what)
	case l.readers > 0 || l.writers > 0:
		return opError(op, KindInUse, "%s has %d borrower(s)", what, l.readers+l.writers)
	}
	l.released = true
	return nil
}

func (l *lease) holders() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readers + l.writers
}
