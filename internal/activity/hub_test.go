package activity_test

import (
	"context"
	"testing"
	"time"

	"github.com/amagraneronline/curso-python/internal/activity"
)

func TestHub_BroadcastsStoredEvents(t *testing.T) {
	store := activity.NewMemoryLogger()
	hub := activity.NewHub(store)
	defer hub.Close()

	events, cancel := hub.Subscribe()
	defer cancel()

	err := hub.LogEvent(context.Background(), activity.Event{LearnerID: "l1", Type: activity.ModuleUnlocked, ModuleID: "variables"})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	select {
	case e := <-events:
		if e.ModuleID != "variables" {
			t.Errorf("ModuleID = %q, want variables", e.ModuleID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	if len(store.Events()) != 1 {
		t.Errorf("stored events = %d, want 1", len(store.Events()))
	}
}

func TestHub_InvalidEventNotBroadcast(t *testing.T) {
	hub := activity.NewHub(activity.NewMemoryLogger())
	events, cancel := hub.Subscribe()
	defer cancel()

	if err := hub.LogEvent(context.Background(), activity.Event{LearnerID: "l1"}); err == nil {
		t.Fatal("expected validation error")
	}

	select {
	case e := <-events:
		t.Fatalf("unexpected event %+v", e)
	default:
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := activity.NewHub(nil)
	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.LogEvent(context.Background(), activity.Event{LearnerID: "l1", Type: activity.QuizFailed})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("LogEvent blocked on a full subscriber")
	}
}

func TestHub_CancelAndClose(t *testing.T) {
	hub := activity.NewHub(nil)

	events, cancel := hub.Subscribe()
	if hub.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d, want 1", hub.Subscribers())
	}
	cancel()
	cancel()
	if hub.Subscribers() != 0 {
		t.Errorf("Subscribers() after cancel = %d, want 0", hub.Subscribers())
	}
	if _, ok := <-events; ok {
		t.Error("channel should be closed after cancel")
	}

	other, _ := hub.Subscribe()
	hub.Close()
	if _, ok := <-other; ok {
		t.Error("channel should be closed after Close")
	}

	late, _ := hub.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscribe after Close should return a closed channel")
	}
}
