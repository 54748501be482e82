// Package sweep finds projects that are due today or overdue and notifies
// their teams. It runs as the system principal, without authorization.
package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"projecthub/internal/events"
	"projecthub/internal/model"
	"projecthub/internal/repository"
)

type ProjectRef struct {
	ID      int64     `json:"id"`
	Title   string    `json:"title"`
	EndDate time.Time `json:"end_date"`
}

type Summary struct {
	DueProjects     []ProjectRef `json:"due_projects"`
	OverdueProjects []ProjectRef `json:"overdue_projects"`
	DueCount        int          `json:"due_count"`
	OverdueCount    int          `json:"overdue_count"`
	Timestamp       time.Time    `json:"timestamp"`
}

type Options struct {
	// Timezone decides where "today" starts. Empty means UTC.
	Timezone string
	// OverdueAction is the timeline action written for overdue projects.
	OverdueAction model.TimelineAction
}

type Sweeper struct {
	store         repository.Store
	pipeline      *events.Pipeline
	location      *time.Location
	overdueAction model.TimelineAction
	now           func() time.Time
	logger        *zap.Logger
}

func NewSweeper(store repository.Store, pipeline *events.Pipeline, opts Options, logger *zap.Logger) (*Sweeper, error) {
	loc := time.UTC
	if opts.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(opts.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid sweep timezone %q: %w", opts.Timezone, err)
		}
	}

	action := opts.OverdueAction
	if action == "" {
		action = model.ActionTaskUpdated
	}
	if !action.Valid() {
		return nil, fmt.Errorf("invalid overdue action %q", action)
	}

	return &Sweeper{
		store:         store,
		pipeline:      pipeline,
		location:      loc,
		overdueAction: action,
		now:           time.Now,
		logger:        logger,
	}, nil
}

// WithClock replaces the clock that decides "today".
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

func refs(projects []model.Project) []ProjectRef {
	out := make([]ProjectRef, 0, len(projects))
	for _, p := range projects {
		ref := ProjectRef{ID: p.ID, Title: p.Title}
		if p.EndDate != nil {
			ref.EndDate = *p.EndDate
		}
		out = append(out, ref)
	}
	return out
}

// Run performs one sweep. Notifications and timeline rows of a run are
// committed together or not at all. Running twice on the same day
// notifies twice.
func (s *Sweeper) Run(ctx context.Context) (*Summary, error) {
	now := s.now().In(s.location)
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	startOfTomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, s.location)

	s.logger.Info("Running overdue sweep",
		zap.Time("today", startOfToday),
		zap.String("timezone", s.location.String()),
	)

	var overdue, due []model.Project
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		overdue, err = tx.Projects().ListEndingBefore(ctx, startOfToday)
		if err != nil {
			return fmt.Errorf("list overdue projects: %w", err)
		}
		due, err = tx.Projects().ListEndingBetween(ctx, startOfToday, startOfTomorrow)
		if err != nil {
			return fmt.Errorf("list due projects: %w", err)
		}

		evs := make([]events.Event, 0, len(overdue)+len(due))
		for _, p := range overdue {
			evs = append(evs, events.ProjectOverdue(p, s.overdueAction))
		}
		for _, p := range due {
			evs = append(evs, events.ProjectDue(p))
		}
		return s.pipeline.Emit(ctx, tx, evs...)
	})
	if err != nil {
		s.logger.Error("Overdue sweep failed", zap.Error(err))
		return nil, err
	}

	summary := &Summary{
		DueProjects:     refs(due),
		OverdueProjects: refs(overdue),
		DueCount:        len(due),
		OverdueCount:    len(overdue),
		Timestamp:       s.now(),
	}

	s.logger.Info("Overdue sweep completed",
		zap.Int("due_count", summary.DueCount),
		zap.Int("overdue_count", summary.OverdueCount),
	)
	return summary, nil
}
