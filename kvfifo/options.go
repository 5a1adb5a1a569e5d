package kvfifo

import "github.com/tailored-agentic-units/kvfifo/observability"

type settings struct {
	observer observability.Observer
	capacity int
}

// Option configures a Queue after config-driven initialization.
type Option func(*settings)

// WithObserver overrides the config-selected observer.
func WithObserver(o observability.Observer) Option {
	return func(s *settings) { s.observer = o }
}

// WithCapacity overrides the initial arena capacity.
func WithCapacity(n int) Option {
	return func(s *settings) { s.capacity = n }
}
