package kvfifo

import (
	"context"
	"time"

	"github.com/tailored-agentic-units/kvfifo/observability"
)

// Snapshot lifecycle events emitted by Queue.
const (
	EventSnapshotCreate  observability.EventType = "kvfifo.snapshot.create"
	EventSnapshotShare   observability.EventType = "kvfifo.snapshot.share"
	EventSnapshotClone   observability.EventType = "kvfifo.snapshot.clone"
	EventSnapshotTaint   observability.EventType = "kvfifo.snapshot.taint"
	EventSnapshotRelease observability.EventType = "kvfifo.snapshot.release"
)

// Clone reasons reported in EventSnapshotClone data.
const (
	ReasonShared  = "shared"
	ReasonTainted = "tainted"
)

const eventSource = "kvfifo"

func emit(obs observability.Observer, typ observability.EventType, data map[string]any) {
	if obs == nil {
		return
	}
	obs.OnEvent(context.Background(), observability.Event{
		Type:      typ,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    eventSource,
		Data:      data,
	})
}
