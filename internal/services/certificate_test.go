package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	repotest "github.com/alanpentz/course-platform/internal/data/repos/testutil"
	types "github.com/alanpentz/course-platform/internal/domain"
	"github.com/alanpentz/course-platform/internal/realtime"
)

func TestCertificateIssuerTreatsAlreadyIssuedAsSuccess(t *testing.T) {
	h := newTxHarness(t)
	ctx := context.Background()
	course := repotest.SeedCourse(t, ctx, h.db, "cert")
	userID := uuid.New()
	progress := types.Progress{Completed: 2, Total: 2, Percent: 100}

	first, issued, err := h.issuer.Issue(ctx, userID, course.ID, progress)
	require.NoError(t, err)
	require.True(t, issued)

	second, issued, err := h.issuer.Issue(ctx, userID, course.ID, progress)
	require.NoError(t, err)
	require.False(t, issued)
	require.Equal(t, first.ID, second.ID)

	require.EqualValues(t, 1, h.metrics.CertificateCount("issued"))
	require.EqualValues(t, 1, h.metrics.CertificateCount("already_issued"))

	events := h.bus.Published()
	require.Len(t, events, 1)
	require.Equal(t, realtime.EventCertificateIssued, events[0].Type)
	require.Equal(t, first.ID, *events[0].CertificateID)
}

func TestCertificateIssuerRejectsMissingIDs(t *testing.T) {
	h := newTxHarness(t)
	_, issued, err := h.issuer.Issue(context.Background(), uuid.Nil, uuid.New(), types.Progress{})
	require.Error(t, err)
	require.False(t, issued)
	require.EqualValues(t, 1, h.metrics.CertificateCount("failed"))
}
