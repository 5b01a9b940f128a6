package pipeline

import "sync/atomic"

// Flag is the process flag shared between a worker and whoever may stop it.
// All access is atomic.
type Flag struct {
	v atomic.Bool
}

// NewFlag returns a flag with the given initial value.
func NewFlag(set bool) *Flag {
	f := &Flag{}
	f.v.Store(set)
	return f
}

// Set raises the flag.
func (f *Flag) Set() { f.v.Store(true) }

// Clear lowers the flag. Idempotent.
func (f *Flag) Clear() { f.v.Store(false) }

// IsSet reports whether the flag is raised.
func (f *Flag) IsSet() bool { return f.v.Load() }
