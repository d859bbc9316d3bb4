package status

import "sync/atomic"

// Flag holds the last known reachability of the backend. It starts offline.
// Readers call Online; only a Monitor writes it.
type Flag struct {
	online atomic.Bool
}

// NewFlag returns a flag in the offline state.
func NewFlag() *Flag {
	return &Flag{}
}

// Online reports whether the last probe succeeded.
func (f *Flag) Online() bool {
	return f.online.Load()
}

// swap stores the new value and returns the previous one.
func (f *Flag) swap(online bool) bool {
	return f.online.Swap(online)
}
