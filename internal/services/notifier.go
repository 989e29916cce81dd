package services

import (
	"context"
	"time"

	types "github.com/alanpentz/course-platform/internal/domain"
	"github.com/alanpentz/course-platform/internal/observability"
	"github.com/alanpentz/course-platform/internal/platform/logger"
	"github.com/alanpentz/course-platform/internal/realtime"
	"github.com/alanpentz/course-platform/internal/realtime/bus"
)

// EventNotifier publishes enrollment and certificate events. Delivery is best
// effort: failures are logged and never surface to the caller.
type EventNotifier interface {
	EnrollmentGranted(ctx context.Context, e *types.Enrollment)
	EnrollmentCompleted(ctx context.Context, e *types.Enrollment)
	CertificateIssued(ctx context.Context, c *types.Certificate)
}

type eventNotifier struct {
	log     *logger.Logger
	bus     bus.Bus
	metrics *observability.Metrics
}

// NewEventNotifier publishes on b; with a nil bus events are only logged.
func NewEventNotifier(log *logger.Logger, b bus.Bus, metrics *observability.Metrics) EventNotifier {
	return &eventNotifier{
		log:     log.With("service", "EventNotifier"),
		bus:     b,
		metrics: metrics,
	}
}

func (n *eventNotifier) EnrollmentGranted(ctx context.Context, e *types.Enrollment) {
	if n == nil || e == nil {
		return
	}
	n.publish(ctx, realtime.EnrollmentGranted(e.UserID, e.CourseID, e.ID, e.UpdatedAt))
}

func (n *eventNotifier) EnrollmentCompleted(ctx context.Context, e *types.Enrollment) {
	if n == nil || e == nil {
		return
	}
	at := time.Now().UTC()
	if e.CompletedAt != nil {
		at = *e.CompletedAt
	}
	n.publish(ctx, realtime.EnrollmentCompleted(e.UserID, e.CourseID, e.ID, at))
}

func (n *eventNotifier) CertificateIssued(ctx context.Context, c *types.Certificate) {
	if n == nil || c == nil {
		return
	}
	n.publish(ctx, realtime.CertificateIssued(c.UserID, c.CourseID, c.ID, c.IssuedAt))
}

func (n *eventNotifier) publish(ctx context.Context, ev realtime.Event) {
	if n.bus == nil {
		n.log.Info("event", "type", ev.Type, "user_id", ev.UserID, "course_id", ev.CourseID)
		n.metrics.IncBusPublish(string(ev.Type), "logged")
		return
	}
	if err := n.bus.Publish(ctx, ev); err != nil {
		n.log.Warn("event publish failed", "type", ev.Type, "user_id", ev.UserID, "course_id", ev.CourseID, "error", err)
		n.metrics.IncBusPublish(string(ev.Type), "error")
		return
	}
	n.metrics.IncBusPublish(string(ev.Type), "ok")
}
