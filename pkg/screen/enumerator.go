package screen

import "strconv"

// Enumerator lists the attached displays in a stable order.
// desktop.Displays is the window-system implementation.
type Enumerator interface {
	Monitors() ([]Monitor, error)
}

// StaticEnumerator returns a fixed list, typically from configuration.
type StaticEnumerator []Monitor

// Monitors validates and returns the configured list with indexes filled in.
func (s StaticEnumerator) Monitors() ([]Monitor, error) {
	if len(s) == 0 {
		return nil, ErrNoMonitors
	}
	out := make([]Monitor, len(s))
	for i, m := range s {
		m.Index = i
		if m.ID == "" {
			m.ID = strconv.Itoa(i)
		}
		if err := m.Valid(); err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}
