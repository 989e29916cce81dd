package bus

import (
	"context"

	"github.com/alanpentz/course-platform/internal/realtime"
)

// Bus carries domain events out of the process and raw grant payloads in.
type Bus interface {
	Publish(ctx context.Context, ev realtime.Event) error
	Subscribe(ctx context.Context, channel string, onPayload func(payload []byte)) error
	Close() error
}
