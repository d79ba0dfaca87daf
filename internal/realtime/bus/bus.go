package bus

import (
	"context"

	"github.com/tofan79/autoclipper-backend/internal/realtime"
)

// Bus mirrors progress events across instances. A single-node deploy
// runs without one; the hub alone covers local subscribers.
type Bus interface {
	Publish(ctx context.Context, event realtime.ProgressEvent) error
	StartForwarder(ctx context.Context, onEvent func(event realtime.ProgressEvent)) error
	Close() error
}
