package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	repotest "github.com/alanpentz/course-platform/internal/data/repos/testutil"
	"github.com/alanpentz/course-platform/internal/pkg/dbctx"
)

func TestGrantConsumerAppliesEventsOnce(t *testing.T) {
	h := newTxHarness(t)
	ctx := context.Background()
	course := repotest.SeedCourse(t, ctx, h.db, "events")
	userID := uuid.New()
	c := NewGrantConsumer(repotest.Logger(t), h.bus, h.enrollment)
	require.NoError(t, c.Start(ctx))

	payload := []byte(fmt.Sprintf(`{"user_id":%q,"course_id":%q,"payment_id":"pi_9"}`, userID, course.ID))
	require.NoError(t, h.bus.PublishRaw(ctx, DefaultGrantsChannel, payload))
	require.NoError(t, h.bus.PublishRaw(ctx, DefaultGrantsChannel, payload))

	e, err := h.enrollments.GetByUserAndCourse(dbctx.Context{Ctx: ctx}, userID, course.ID)
	require.NoError(t, err)
	require.NotNil(t, e)
	require.NotNil(t, e.PaymentID)
	require.Equal(t, "pi_9", *e.PaymentID)

	_, total, err := h.enrollments.ListByUser(dbctx.Context{Ctx: ctx}, userID, "", 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
}

func TestGrantConsumerRejectsBadPayloads(t *testing.T) {
	h := newTxHarness(t)
	c := NewGrantConsumer(repotest.Logger(t), h.bus, h.enrollment)
	ctx := context.Background()

	for name, payload := range map[string]string{
		"not json":       `{`,
		"missing course": fmt.Sprintf(`{"user_id":%q}`, uuid.New()),
		"bad uuid":       fmt.Sprintf(`{"user_id":"abc","course_id":%q}`, uuid.New()),
	} {
		require.Error(t, c.Handle(ctx, []byte(payload)), name)
	}
}
