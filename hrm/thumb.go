package hrm

// ThumbMonitor tracks the thumb keys that activate the modifier layer.
//
// The layer is active while any thumb key is held. onRise runs when the
// first thumb key goes down, onFall when the last one comes up.
type ThumbMonitor struct {
	codes  []uint8
	held   []bool
	active bool
	onRise func()
	onFall func()
}

// NewThumbMonitor returns a monitor for codes. Either callback may be nil.
func NewThumbMonitor(codes []uint8, onRise, onFall func()) *ThumbMonitor {
	return &ThumbMonitor{
		codes:  append([]uint8(nil), codes...),
		held:   make([]bool, len(codes)),
		onRise: onRise,
		onFall: onFall,
	}
}

// Handles reports whether code is one of the monitored thumb keys.
func (m *ThumbMonitor) Handles(code uint8) bool {
	return m.indexOf(code) >= 0
}

func (m *ThumbMonitor) indexOf(code uint8) int {
	for i, c := range m.codes {
		if c == code {
			return i
		}
	}
	return -1
}

// Update records a thumb key transition and fires the edge callbacks. It
// returns false if code is not a thumb key.
func (m *ThumbMonitor) Update(code uint8, pressed bool) bool {
	i := m.indexOf(code)
	if i < 0 {
		return false
	}
	m.held[i] = pressed

	was := m.active
	m.active = false
	for _, h := range m.held {
		if h {
			m.active = true
			break
		}
	}

	switch {
	case !was && m.active:
		if m.onRise != nil {
			m.onRise()
		}
	case was && !m.active:
		if m.onFall != nil {
			m.onFall()
		}
	}
	return true
}

// Active reports whether any thumb key is held.
func (m *ThumbMonitor) Active() bool {
	return m.active
}

// Reset clears every flag without firing callbacks.
func (m *ThumbMonitor) Reset() {
	for i := range m.held {
		m.held[i] = false
	}
	m.active = false
}
