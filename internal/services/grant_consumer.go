package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/alanpentz/course-platform/internal/platform/envutil"
	"github.com/alanpentz/course-platform/internal/platform/logger"
	"github.com/alanpentz/course-platform/internal/realtime/bus"
)

const DefaultGrantsChannel = "enrollment_grants"

// GrantEvent is what the payment flow publishes once a purchase is captured.
type GrantEvent struct {
	UserID    string `json:"user_id" validate:"required,uuid"`
	CourseID  string `json:"course_id" validate:"required,uuid"`
	PaymentID string `json:"payment_id" validate:"omitempty,max=255"`
}

type GrantConsumer interface {
	Start(ctx context.Context) error
	Handle(ctx context.Context, payload []byte) error
}

type grantConsumer struct {
	log      *logger.Logger
	bus      bus.Bus
	channel  string
	svc      EnrollmentService
	validate *validator.Validate
}

func NewGrantConsumer(log *logger.Logger, b bus.Bus, svc EnrollmentService) GrantConsumer {
	return &grantConsumer{
		log:      log.With("service", "GrantConsumer"),
		bus:      b,
		channel:  envutil.String("REDIS_CHANNEL_GRANTS", DefaultGrantsChannel),
		svc:      svc,
		validate: validator.New(),
	}
}

func (c *grantConsumer) Start(ctx context.Context) error {
	if c.bus == nil {
		c.log.Warn("no event bus; grant consumer disabled")
		return nil
	}
	if err := c.bus.Subscribe(ctx, c.channel, func(payload []byte) {
		if err := c.Handle(ctx, payload); err != nil {
			c.log.Warn("grant event rejected", "error", err)
		}
	}); err != nil {
		return err
	}
	c.log.Info("grant consumer started", "channel", c.channel)
	return nil
}

// Handle applies one grant event. Redelivered events are no-ops because the
// grant itself is idempotent.
func (c *grantConsumer) Handle(ctx context.Context, payload []byte) error {
	var ev GrantEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode grant event: %w", err)
	}
	if err := c.validate.Struct(ev); err != nil {
		return fmt.Errorf("invalid grant event: %w", err)
	}
	res, err := c.svc.Grant(ctx, GrantInput{
		UserID:    uuid.MustParse(ev.UserID),
		CourseID:  uuid.MustParse(ev.CourseID),
		PaymentID: ev.PaymentID,
		Source:    GrantSourceEvent,
	})
	if err != nil {
		return err
	}
	c.log.Debug("grant event applied", "user_id", ev.UserID, "course_id", ev.CourseID, "created", res.Created)
	return nil
}
