package sender

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"medremind/internal/entity"
)

// OutboundQueue is the store-backed notification queue consumed by the
// in-app socket gateway.
type OutboundQueue interface {
	Push(ctx context.Context, ch entity.Channel, event entity.NotificationEvent) error
}

// SocketSender hands the event to the outbound queue. Delivery to a live
// session is the gateway's job; enqueueing is this channel's send.
type SocketSender struct {
	queue OutboundQueue
	log   *zap.SugaredLogger
}

func NewSocketSender(queue OutboundQueue, log *zap.SugaredLogger) *SocketSender {
	return &SocketSender{
		queue: queue,
		log:   log.With("sender", "socket"),
	}
}

func (s *SocketSender) Send(ctx context.Context, event entity.NotificationEvent) error {
	if err := s.queue.Push(ctx, entity.ChannelSocket, event); err != nil {
		return fmt.Errorf("enqueue socket event: %w", err)
	}

	s.log.Debugw("socket event enqueued",
		"reminder_id", event.ReminderID,
		"owner_id", event.OwnerID,
	)
	return nil
}
