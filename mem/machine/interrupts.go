package machine

// InterruptsEnabled reports the state of the interrupt flag.
func (m *Machine) InterruptsEnabled() bool { return m.interrupts.Load() }

// EnableInterrupts sets the interrupt flag (STI).
func (m *Machine) EnableInterrupts() { m.interrupts.Store(true) }

// DisableInterrupts clears the interrupt flag (CLI).
func (m *Machine) DisableInterrupts() { m.interrupts.Store(false) }

// WithoutInterrupts runs fn with interrupts disabled and restores the
// previous flag afterwards, also when fn panics.
func (m *Machine) WithoutInterrupts(fn func()) {
	saved := m.interrupts.Swap(false)
	defer m.interrupts.Store(saved)
	fn()
}
