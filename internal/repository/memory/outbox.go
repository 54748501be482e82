package memory

import (
	"context"
	"time"

	"projecthub/internal/repository"
	"projecthub/pkg/outbox"
)

const retryBackoff = 5 * time.Second

// outboxRepo mirrors the status transitions of outbox.Repository so the
// dispatcher can relay from the memory driver too.
type outboxRepo struct{ s *Store }

func (r outboxRepo) Insert(_ context.Context, ev *outbox.Event) error {
	return r.s.do(func(d *dataset) error {
		if ev.Status == "" {
			ev.Status = outbox.StatusPending
		}
		ev.ID = d.nextID()
		ev.CreatedAt = r.s.now()
		ev.UpdatedAt = ev.CreatedAt
		d.outbox[ev.ID] = *ev
		return nil
	})
}

func (r outboxRepo) GetPendingEvents(_ context.Context, limit int) ([]*outbox.Event, error) {
	var out []*outbox.Event
	err := r.s.do(func(d *dataset) error {
		now := r.s.now()
		pending := sortedValues(d.outbox, func(e outbox.Event) bool {
			return e.Status == outbox.StatusPending && (e.NextRetryAt == nil || !e.NextRetryAt.After(now))
		})
		for i := range pending {
			if limit > 0 && len(out) == limit {
				break
			}
			out = append(out, &pending[i])
		}
		return nil
	})
	return out, err
}

func (r outboxRepo) MarkAsSent(_ context.Context, eventID int64) error {
	return r.s.do(func(d *dataset) error {
		e, ok := d.outbox[eventID]
		if !ok {
			return repository.ErrNotFound
		}
		e.Status = outbox.StatusSent
		e.UpdatedAt = r.s.now()
		d.outbox[eventID] = e
		return nil
	})
}

func (r outboxRepo) MarkAsFailed(_ context.Context, eventID int64, maxRetries int) error {
	return r.s.do(func(d *dataset) error {
		e, ok := d.outbox[eventID]
		if !ok {
			return repository.ErrNotFound
		}
		now := r.s.now()
		e.RetryCount++
		if e.RetryCount >= maxRetries {
			e.Status = outbox.StatusFailed
			e.NextRetryAt = nil
		} else {
			next := now.Add(time.Duration(e.RetryCount) * retryBackoff)
			e.Status = outbox.StatusPending
			e.NextRetryAt = &next
		}
		e.UpdatedAt = now
		d.outbox[eventID] = e
		return nil
	})
}

// GetFailedEvents returns dead events newest first.
func (r outboxRepo) GetFailedEvents(_ context.Context, limit int) ([]*outbox.Event, error) {
	var out []*outbox.Event
	err := r.s.do(func(d *dataset) error {
		failed := sortedValues(d.outbox, func(e outbox.Event) bool {
			return e.Status == outbox.StatusFailed
		})
		for i := len(failed) - 1; i >= 0; i-- {
			if limit > 0 && len(out) == limit {
				break
			}
			out = append(out, &failed[i])
		}
		return nil
	})
	return out, err
}

func (r outboxRepo) GetEventByID(_ context.Context, eventID int64) (*outbox.Event, error) {
	var out *outbox.Event
	err := r.s.do(func(d *dataset) error {
		e, ok := d.outbox[eventID]
		if !ok {
			return repository.ErrNotFound
		}
		out = &e
		return nil
	})
	return out, err
}
