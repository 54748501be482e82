package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"projecthub/internal/model"
	"projecthub/internal/repository"
	"projecthub/pkg/logger"
	"projecthub/pkg/metrics"
	"projecthub/pkg/outbox"
)

const (
	ModeAtomic     = "atomic"
	ModeBestEffort = "best_effort"
)

// Pipeline writes the side effects of mutations. In atomic mode they share
// the mutation's unit of work; in best-effort mode they are written after
// it commits and a failure leaves the mutation in place.
type Pipeline struct {
	atomic bool
	logger *zap.Logger
}

func NewPipeline(atomic bool, logger *zap.Logger) *Pipeline {
	return &Pipeline{atomic: atomic, logger: logger}
}

func (p *Pipeline) Mode() string {
	if p.atomic {
		return ModeAtomic
	}
	return ModeBestEffort
}

// Emit writes every event through store with one bulk insert per row
// kind, plus one outbox row per event.
func (p *Pipeline) Emit(ctx context.Context, store repository.Store, evs ...Event) error {
	if len(evs) == 0 {
		return nil
	}

	var (
		timeline      []model.TimelineEvent
		notifications []model.Notification
	)
	for _, ev := range evs {
		if !ev.SkipTimeline {
			timeline = append(timeline, model.TimelineEvent{
				ProjectID:   ev.ProjectID,
				UserID:      ev.UserID,
				Action:      ev.Action,
				Description: ev.Description,
			})
		}
		for _, uid := range ev.Recipients {
			notifications = append(notifications, model.Notification{UserID: uid, Message: ev.Message})
		}
	}

	if err := store.Timeline().BulkInsert(ctx, timeline); err != nil {
		return fmt.Errorf("insert timeline events: %w", err)
	}
	if err := store.Notifications().BulkInsert(ctx, notifications); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}

	for _, ev := range evs {
		if ev.RoutingKey == "" {
			continue
		}
		record, err := outbox.NewEvent(ctx, ev.AggregateType, ev.AggregateID, ev.RoutingKey, map[string]interface{}{
			"action":      string(ev.Action),
			"project_id":  ev.ProjectID,
			"user_id":     ev.UserID,
			"description": ev.Description,
			"message":     ev.Message,
			"recipients":  ev.Recipients,
		})
		if err != nil {
			return fmt.Errorf("build outbox event: %w", err)
		}
		if err := store.Outbox().Insert(ctx, record); err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
	}

	for _, ev := range evs {
		label := string(ev.Action)
		if ev.SkipTimeline {
			label = ev.RoutingKey
		} else {
			metrics.AddTimelineEvents(label, 1)
		}
		metrics.AddNotifications(label, len(ev.Recipients))
	}

	logger.WithTrace(ctx, p.logger).Debug("Events emitted",
		zap.Int("events", len(evs)),
		zap.Int("timeline", len(timeline)),
		zap.Int("notifications", len(notifications)),
	)
	return nil
}

// Run executes mutate in a unit of work and emits the events it returns.
// Nothing is emitted when mutate fails.
func (p *Pipeline) Run(ctx context.Context, store repository.Store, mutate func(tx repository.Store) ([]Event, error)) error {
	if p.atomic {
		return store.WithinTx(ctx, func(tx repository.Store) error {
			evs, err := mutate(tx)
			if err != nil {
				return err
			}
			if err := p.Emit(ctx, tx, evs...); err != nil {
				metrics.IncrementPipelineFailure(ModeAtomic)
				return fmt.Errorf("emit events: %w", err)
			}
			return nil
		})
	}

	var evs []Event
	err := store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		evs, err = mutate(tx)
		return err
	})
	if err != nil {
		return err
	}

	err = store.WithinTx(ctx, func(tx repository.Store) error {
		return p.Emit(ctx, tx, evs...)
	})
	if err != nil {
		metrics.IncrementPipelineFailure(ModeBestEffort)
		logger.WithTrace(ctx, p.logger).Error("Event pipeline failed after commit",
			zap.Int("events", len(evs)),
			zap.Error(err),
		)
	}
	return nil
}
