package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ReplayService 把已进入 failed 状态的事件重新发布一次
type ReplayService struct {
	store      ReplayStore
	dispatcher *Dispatcher
	logger     *zap.Logger
}

func NewReplayService(store ReplayStore, dispatcher *Dispatcher, logger *zap.Logger) *ReplayService {
	return &ReplayService{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ReplayEvent 重放单个事件；发布失败时再次计入重试次数
func (s *ReplayService) ReplayEvent(ctx context.Context, eventID int64) error {
	event, err := s.store.GetEventByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to get event %d: %w", eventID, err)
	}
	if event.Status == StatusSent {
		s.logger.Info("Event already sent, skipping replay", zap.Int64("event_id", eventID))
		return nil
	}

	if err := s.dispatcher.publishOne(ctx, event); err != nil {
		if markErr := s.store.MarkAsFailed(ctx, eventID, s.dispatcher.maxRetries); markErr != nil {
			return fmt.Errorf("publish event %d: %w (mark failed: %v)", eventID, err, markErr)
		}
		return err
	}

	if err := s.store.MarkAsSent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to mark event %d as sent: %w", eventID, err)
	}
	return nil
}

// ReplayFailedEvents 重放最多 limit 个失败事件，返回成功数量。
// 单个事件失败不会中断整批
func (s *ReplayService) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	events, err := s.store.GetFailedEvents(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get failed events: %w", err)
	}

	replayed := 0
	for _, event := range events {
		if err := s.ReplayEvent(ctx, event.ID); err != nil {
			s.logger.Warn("Replay failed",
				zap.Int64("event_id", event.ID),
				zap.String("routing_key", event.RoutingKey),
				zap.Error(err),
			)
			continue
		}
		replayed++
	}

	s.logger.Info("Outbox replay finished",
		zap.Int("candidates", len(events)),
		zap.Int("replayed", replayed),
	)
	return replayed, nil
}
