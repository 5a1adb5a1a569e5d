// Package observability carries structured events out of kvfifo queues.
// Queues report snapshot lifecycle transitions (create, share, clone, taint,
// release) as Events; an Observer decides where they go: slog, zerolog,
// Prometheus counters, several of those at once, or nowhere.
//
// Level values follow OpenTelemetry SeverityNumbers so events translate to
// OTel log records without remapping.
//
// Observers are selected by name from configuration through the registry:
//
//	observability.RegisterObserver("metrics", promObserver)
//	obs, err := observability.GetObserver("metrics")
package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/rs/zerolog"
)

// Level represents event severity aligned with OTel SeverityNumber ranges.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG (5-8)
	LevelInfo    Level = 9  // OTel INFO (9-12)
	LevelWarning Level = 13 // OTel WARN (13-16)
	LevelError   Level = 17 // OTel ERROR (17-20)
)

// String returns the OTel severity text for the level.
func (l Level) String() string {
	switch {
	case l <= 4:
		return "TRACE"
	case l <= 8:
		return "DEBUG"
	case l <= 12:
		return "INFO"
	case l <= 16:
		return "WARN"
	case l <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// SlogLevel maps this level to the corresponding slog.Level.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// ZerologLevel maps this level to the corresponding zerolog.Level.
func (l Level) ZerologLevel() zerolog.Level {
	switch {
	case l <= 4:
		return zerolog.TraceLevel
	case l <= 8:
		return zerolog.DebugLevel
	case l <= 12:
		return zerolog.InfoLevel
	case l <= 16:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// EventType identifies the kind of event, e.g. "kvfifo.snapshot.clone".
type EventType string

// Event is a single observation. Fields map to OTel LogRecord fields:
// Type→EventName, Level→SeverityNumber, Timestamp→Timestamp,
// Source→InstrumentationScope, Data→Attributes.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// Observer receives events for logging, tracing, or metrics. OnEvent is
// called synchronously from the emitting operation and must not call back
// into it.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ctx context.Context, event Event)

func (f ObserverFunc) OnEvent(ctx context.Context, event Event) {
	f(ctx, event)
}

// NoOpObserver discards all events.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}

// MultiObserver fans out events to several observers in order.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver over the non-nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return &MultiObserver{observers: filtered}
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}
