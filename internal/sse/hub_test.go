package sse

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/dayplan-backend/internal/logger"
)

func newTestHub(t *testing.T) *SSEHub {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return NewSSEHub(log)
}

func TestCloseClientTwice(t *testing.T) {
	hub := newTestHub(t)
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, UserChannel(userID))

	hub.CloseClient(client)
	// A replaced stream's tail closes the same client again.
	hub.CloseClient(client)

	if len(client.Channels) != 0 {
		t.Fatalf("channels not cleared: %v", client.Channels)
	}
}

func TestBroadcastAfterClose(t *testing.T) {
	hub := newTestHub(t)
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, UserChannel(userID))
	hub.CloseClient(client)

	// Subscriptions are gone, so this must not write to the closed
	// outbound channel.
	hub.Broadcast(SSEMessage{
		Channel: UserChannel(userID),
		Event:   SSEEventTaskUpdated,
	})
}

func TestBroadcastReachesSubscriber(t *testing.T) {
	hub := newTestHub(t)
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, UserChannel(userID))

	hub.Broadcast(SSEMessage{
		Channel: UserChannel(userID),
		Event:   SSEEventTaskCreated,
	})

	select {
	case msg := <-client.Outbound:
		if msg.Event != SSEEventTaskCreated {
			t.Fatalf("event = %q, want %q", msg.Event, SSEEventTaskCreated)
		}
	default:
		t.Fatal("no message delivered to subscriber")
	}
}
