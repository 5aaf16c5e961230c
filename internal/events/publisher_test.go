package events

import (
	"context"
	"sync"
	"testing"
)

func TestMockEventPublisher_RecordsEvents(t *testing.T) {
	pub := NewMockEventPublisher(nil)

	err := pub.Publish(context.Background(), EventTypeScanAnnotated, ScanAnnotatedEvent{
		ScanID:         1,
		PatientID:      2,
		PredictedClass: "MALIGNANT",
		Confidence:     92.4,
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	events := pub.GetPublishedEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != EventTypeScanAnnotated {
		t.Errorf("unexpected event type %q", events[0].Type)
	}
	if events[0].OccurredAt.IsZero() {
		t.Error("occurred_at not set")
	}

	data, ok := events[0].Data.(ScanAnnotatedEvent)
	if !ok {
		t.Fatalf("unexpected event data %T", events[0].Data)
	}
	if data.ScanID != 1 || data.PredictedClass != "MALIGNANT" {
		t.Errorf("unexpected event data %+v", data)
	}
}

func TestMockEventPublisher_SnapshotIsolation(t *testing.T) {
	pub := NewMockEventPublisher(nil)

	_ = pub.Publish(context.Background(), EventTypeReportFinalized, ReportFinalizedEvent{ReportID: 9, ScanID: 3})

	snapshot := pub.GetPublishedEvents()
	pub.ClearEvents()

	if len(snapshot) != 1 {
		t.Fatalf("snapshot should survive clear, got %d events", len(snapshot))
	}
	if got := pub.GetPublishedEvents(); len(got) != 0 {
		t.Errorf("expected no events after clear, got %d", len(got))
	}
}

func TestMockEventPublisher_ConcurrentPublish(t *testing.T) {
	pub := NewMockEventPublisher(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Publish(context.Background(), EventTypeScanAnnotated, nil)
		}()
	}
	wg.Wait()

	if got := len(pub.GetPublishedEvents()); got != 20 {
		t.Errorf("expected 20 events, got %d", got)
	}
}
