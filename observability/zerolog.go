package observability

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologObserver emits events to a zerolog.Logger. The event type becomes
// the message, Source is written as "source" and Data keys as fields.
type ZerologObserver struct {
	logger zerolog.Logger
}

// NewZerologObserver creates a ZerologObserver that emits to the given logger.
func NewZerologObserver(logger zerolog.Logger) *ZerologObserver {
	return &ZerologObserver{logger: logger}
}

func (o *ZerologObserver) OnEvent(ctx context.Context, event Event) {
	e := o.logger.WithLevel(event.Level.ZerologLevel())
	if e == nil {
		return
	}
	e = e.Str("source", event.Source)
	if len(event.Data) > 0 {
		e = e.Fields(event.Data)
	}
	if !event.Timestamp.IsZero() {
		e = e.Time("event_time", event.Timestamp)
	}
	e.Msg(string(event.Type))
}
