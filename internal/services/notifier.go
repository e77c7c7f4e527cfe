package services

import (
	"context"

	"github.com/google/uuid"

	redisclient "github.com/yungbote/dayplan-backend/internal/clients/redis"
	"github.com/yungbote/dayplan-backend/internal/logger"
	"github.com/yungbote/dayplan-backend/internal/sse"
)

// PlanNotifier pushes plan-change events to the owner's SSE channel. When a
// redis bus is configured the event goes through it so other instances'
// subscribers see it too; otherwise it is delivered to the local hub only.
type PlanNotifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event sse.SSEEvent, data any)
}

type planNotifier struct {
	log *logger.Logger
	hub *sse.SSEHub
	bus redisclient.PlanBus
}

func NewPlanNotifier(log *logger.Logger, hub *sse.SSEHub, bus redisclient.PlanBus) PlanNotifier {
	return &planNotifier{
		log: log.With("service", "PlanNotifier"),
		hub: hub,
		bus: bus,
	}
}

func (pn *planNotifier) Notify(ctx context.Context, userID uuid.UUID, event sse.SSEEvent, data any) {
	if userID == uuid.Nil {
		return
	}
	msg := sse.SSEMessage{
		Channel: sse.UserChannel(userID),
		Event:   event,
		Data:    data,
	}
	if pn.bus != nil {
		if err := pn.bus.Publish(ctx, msg); err != nil {
			pn.log.Warn("Failed to publish plan event to redis, delivering locally", "error", err)
			pn.hub.Broadcast(msg)
		}
		return
	}
	pn.hub.Broadcast(msg)
}
