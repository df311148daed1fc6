package alloc

import (
	"sync"

	"github.com/joshuapare/kmemcore/mem/addr"
	"github.com/joshuapare/kmemcore/mem/frame"
)

// Locked makes a strategy safe to share between normal code and interrupt
// handlers. Every call disables interrupts, then holds the mutex for exactly
// one operation; no operation calls back into the same Locked.
type Locked[S Strategy] struct {
	mu    sync.Mutex
	guard frame.InterruptGuard
	inner S
}

// NewLocked wraps inner. guard may be nil when no interrupts exist.
func NewLocked[S Strategy](inner S, guard frame.InterruptGuard) *Locked[S] {
	return &Locked[S]{inner: inner, guard: guard}
}

func (l *Locked[S]) run(fn func()) {
	locked := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		fn()
	}
	if l.guard == nil {
		locked()
		return
	}
	l.guard.WithoutInterrupts(locked)
}

// Init initializes the wrapped strategy.
func (l *Locked[S]) Init(start addr.VirtAddr, size uint64) {
	l.run(func() { l.inner.Init(start, size) })
}

// Alloc allocates from the wrapped strategy.
func (l *Locked[S]) Alloc(lay Layout) (ptr addr.VirtAddr, err error) {
	l.run(func() { ptr, err = l.inner.Alloc(lay) })
	return ptr, err
}

// Dealloc releases ptr to the wrapped strategy.
func (l *Locked[S]) Dealloc(ptr addr.VirtAddr, lay Layout) {
	l.run(func() { l.inner.Dealloc(ptr, lay) })
}

// Stats returns a snapshot of the wrapped strategy's counters.
func (l *Locked[S]) Stats() (s Stats) {
	l.run(func() { s = l.inner.Stats() })
	return s
}

// Kind returns the wrapped strategy's kind.
func (l *Locked[S]) Kind() Kind { return l.inner.Kind() }

// With runs fn with exclusive access to the wrapped strategy.
func (l *Locked[S]) With(fn func(S)) {
	l.run(func() { fn(l.inner) })
}
