package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/ports"
	"github.com/tambongslade/SMS-Simbtech-sub004/test/mocks"
)

func TestSessionEventType(t *testing.T) {
	cases := []struct {
		eventType string
		want      bool
	}{
		{ports.SessionEstablished, true},
		{ports.SessionInvalidated, true},
		{"student.enrolled", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := sessionEventType(tc.eventType); got != tc.want {
			t.Errorf("sessionEventType(%q) = %v, want %v", tc.eventType, got, tc.want)
		}
	}
}

func TestRelay_HealthProbes(t *testing.T) {
	relay := NewRelay(nil, "postgres://localhost/auth", mocks.NewMockSessionEventPublisher())

	if !relay.IsHealthy() {
		t.Error("new relay must report healthy")
	}
	if !relay.IsReady() {
		t.Error("new relay must report ready")
	}

	// A relay that has not processed anything for a while is stale.
	relay.lastProcessed.Store(time.Now().Add(-10 * time.Minute).UnixNano())
	if relay.IsReady() {
		t.Error("stale relay must not report ready")
	}
	if !relay.IsHealthy() {
		t.Error("staleness degrades readiness, not liveness")
	}
}

// Health probes are served from a separate goroutine while the worker loop
// updates its state; both sides must be safe under the race detector.
func TestRelay_ConcurrentHealthProbes(t *testing.T) {
	relay := NewRelay(nil, "postgres://localhost/auth", mocks.NewMockSessionEventPublisher())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			relay.lastProcessed.Store(time.Now().UnixNano())
			relay.isHealthy.Store(i%2 == 0)
		}
	}()

	for i := 0; i < 1000; i++ {
		relay.IsHealthy()
		relay.IsReady()
	}
	<-done

	relay.isHealthy.Store(true)
	if !relay.IsHealthy() || !relay.IsReady() {
		t.Error("relay must settle healthy and ready after the churn")
	}
}

func TestMockPublisher_CapturesEvents(t *testing.T) {
	publisher := mocks.NewMockSessionEventPublisher()

	yearID := 5
	evt := ports.SessionEvent{
		EventID:        "evt-1",
		Type:           ports.SessionEstablished,
		UserID:         7,
		Role:           "TEACHER",
		AcademicYearID: &yearID,
		OccurredAt:     time.Now(),
	}

	if err := publisher.PublishSessionEvent(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := publisher.GetPublishedEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != ports.SessionEstablished || events[0].UserID != 7 {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

func TestMockPublisher_ErrorInjection(t *testing.T) {
	publisher := mocks.NewMockSessionEventPublisher()
	publisher.PublishError = context.DeadlineExceeded

	err := publisher.PublishSessionEvent(context.Background(), ports.SessionEvent{EventID: "evt-2"})
	if err != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if len(publisher.GetPublishedEvents()) != 0 {
		t.Error("failed publishes must not be captured")
	}
}
