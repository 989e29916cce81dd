package bus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/alanpentz/course-platform/internal/realtime"
)

func TestMemoryBusForwardsInOrder(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	var got []realtime.EventType
	err := b.Subscribe(ctx, DefaultEventsChannel, func(p []byte) {
		var ev realtime.Event
		if err := json.Unmarshal(p, &ev); err != nil {
			t.Errorf("decode event: %v", err)
			return
		}
		got = append(got, ev.Type)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	userID, courseID := uuid.New(), uuid.New()
	now := time.Now().UTC()
	if err := b.Publish(ctx, realtime.EnrollmentGranted(userID, courseID, uuid.New(), now)); err != nil {
		t.Fatalf("Publish granted: %v", err)
	}
	if err := b.Publish(ctx, realtime.CertificateIssued(userID, courseID, uuid.New(), now)); err != nil {
		t.Fatalf("Publish issued: %v", err)
	}

	if len(got) != 2 || got[0] != realtime.EventEnrollmentGranted || got[1] != realtime.EventCertificateIssued {
		t.Fatalf("forwarded: want=[granted issued] got=%v", got)
	}
	if n := len(b.Published()); n != 2 {
		t.Fatalf("Published: want=2 got=%d", n)
	}
}

func TestMemoryBusRawSubscribeAndClose(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	var payloads []string
	if err := b.Subscribe(ctx, "grants", func(p []byte) { payloads = append(payloads, string(p)) }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := b.PublishRaw(ctx, "other", []byte("x")); err != nil {
		t.Fatalf("PublishRaw other: %v", err)
	}
	if err := b.PublishRaw(ctx, "grants", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("PublishRaw grants: %v", err)
	}
	if len(payloads) != 1 || payloads[0] != `{"a":1}` {
		t.Fatalf("payloads: want=[{\"a\":1}] got=%v", payloads)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.PublishRaw(ctx, "grants", []byte("y")); err == nil {
		t.Fatalf("PublishRaw after Close: want error")
	}
}
