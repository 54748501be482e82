package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"projecthub/pkg/db"
	"projecthub/pkg/outbox"
)

const pgUniqueViolation = "23505"

// PostgresStore implements Store on a pgx pool. Inside WithinTx every
// repository runs its SQL on the same pgx.Tx.
type PostgresStore struct {
	pool   *pgxpool.Pool
	q      db.Querier
	inTx   bool
	logger *zap.Logger
	outbox *outbox.Repository
}

func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		q:      pool,
		logger: logger,
		outbox: outbox.NewRepository(pool),
	}
}

func (s *PostgresStore) Users() UserRepository {
	return &pgUserRepository{q: s.q, logger: s.logger}
}

func (s *PostgresStore) Profiles() ProfileRepository {
	return &pgProfileRepository{q: s.q, logger: s.logger}
}

func (s *PostgresStore) Projects() ProjectRepository {
	return &pgProjectRepository{q: s.q, logger: s.logger}
}

func (s *PostgresStore) Tasks() TaskRepository {
	return &pgTaskRepository{q: s.q, logger: s.logger}
}

func (s *PostgresStore) Documents() DocumentRepository {
	return &pgDocumentRepository{q: s.q, logger: s.logger}
}

func (s *PostgresStore) Comments() CommentRepository {
	return &pgCommentRepository{q: s.q, logger: s.logger}
}

func (s *PostgresStore) Timeline() TimelineRepository {
	return &pgTimelineRepository{q: s.q, logger: s.logger}
}

func (s *PostgresStore) Notifications() NotificationRepository {
	return &pgNotificationRepository{q: s.q, logger: s.logger}
}

func (s *PostgresStore) Outbox() OutboxRepository {
	return &pgOutboxRepository{q: s.q, repo: s.outbox}
}

// OutboxEvents exposes the relay side of the outbox for the worker.
func (s *PostgresStore) OutboxEvents() *outbox.Repository {
	return s.outbox
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		s.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("begin tx: %w", err)
	}

	txStore := &PostgresStore{
		pool:   s.pool,
		q:      tx,
		inTx:   true,
		logger: s.logger,
		outbox: s.outbox,
	}

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Warn("Rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// mapErr 把 pgx 错误转换为仓储层的哨兵错误
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// expectOne 在 UPDATE/DELETE 未命中任何行时返回 ErrNotFound
func expectOne(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type pgOutboxRepository struct {
	q    db.Querier
	repo *outbox.Repository
}

func (r *pgOutboxRepository) Insert(ctx context.Context, event *outbox.Event) error {
	return r.repo.InsertEvent(ctx, r.q, event)
}
