package realtime

import (
	"context"
	"os"
	"testing"
	"time"

	"lostfound/notification"
)

func TestUserChannel(t *testing.T) {
	cases := []struct {
		name   string
		userID string
		want   string
	}{
		{"named user", "user-42", "lostfound:notify:user-42"},
		{"empty identity falls back to anonymous", "", "lostfound:notify:anonymous"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := UserChannel(tc.userID); got != tc.want {
				t.Errorf("UserChannel(%q) = %q, want %q", tc.userID, got, tc.want)
			}
		})
	}
}

func TestNewBroker_EmptyURL(t *testing.T) {
	b, err := NewBroker(context.Background(), "")
	if err != nil {
		t.Fatalf("NewBroker() error = %v", err)
	}
	if b != nil {
		t.Fatal("expected nil broker for empty URL")
	}
}

func TestBroker_PublishSubscribe(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	broker, err := NewBroker(ctx, redisURL)
	if err != nil {
		t.Fatalf("NewBroker() error = %v", err)
	}
	defer broker.Close()

	events, err := broker.Subscribe(ctx, "user-it")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	candID := "cand-it"
	sent := notification.Event{Title: "Possible match", Body: "Check it out.", CandidateID: &candID}
	if err := broker.Publish(ctx, "user-it", sent); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-events:
		if got.Title != sent.Title || got.Body != sent.Body {
			t.Errorf("received %+v, want %+v", got, sent)
		}
		if got.CandidateID == nil || *got.CandidateID != candID {
			t.Errorf("candidate id = %v, want %q", got.CandidateID, candID)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for published event")
	}
}
