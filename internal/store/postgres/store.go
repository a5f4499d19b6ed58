// Package postgres implements the distribution and rollup stores on database/sql.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"leadflow-workers/internal/common/database"
	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/distribution"
	"leadflow-workers/internal/models"
	"leadflow-workers/internal/rollup"
)

// ErrTransient marks failures worth retrying: lost connections, aborted
// transactions, lock timeouts.
var ErrTransient = errors.New("TRANSIENT_STORE_ERROR")

var (
	_ distribution.GoalStore     = (*Store)(nil)
	_ distribution.PhoneRegistry = (*Store)(nil)
	_ distribution.UsageCounter  = (*Store)(nil)
	_ distribution.Claimer       = (*Store)(nil)
	_ rollup.Store               = (*Store)(nil)
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Store struct {
	db          *sql.DB
	cache       *redis.Client
	logger      logger.Logger
	defaultGoal models.Goal
	goalTTL     time.Duration
	reportTTL   time.Duration
	now         func() time.Time
}

type Option func(*Store)

// WithCache enables the Redis read-through cache for goals and reports.
func WithCache(rdb *redis.Client) Option {
	return func(s *Store) { s.cache = rdb }
}

func WithDefaultGoal(g models.Goal) Option {
	return func(s *Store) {
		if g.Valid() {
			s.defaultGoal = g
		}
	}
}

func WithGoalTTL(d time.Duration) Option {
	return func(s *Store) { s.goalTTL = d }
}

func WithReportTTL(d time.Duration) Option {
	return func(s *Store) { s.reportTTL = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(db *sql.DB, log logger.Logger, opts ...Option) *Store {
	s := &Store{
		db:          db,
		logger:      log.WithFields(map[string]interface{}{"component": "postgres-store"}),
		defaultGoal: models.DefaultGoal,
		goalTTL:     5 * time.Minute,
		reportTTL:   time.Minute,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// transient wraps a driver error so callers can retry it. Context errors are
// kept as they are; the job boundary maps them to timeouts.
func transient(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// inTx runs fn in a transaction. Begin and commit failures are transient;
// fn's own error is returned unchanged.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	var fnErr error
	err := database.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		fnErr = fn(tx)
		return fnErr
	})
	if err != nil && fnErr == nil {
		return transient("transaction", err)
	}
	return err
}
