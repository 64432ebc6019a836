package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/jwalitptl/medhist-api/pkg/errors"
	"github.com/jwalitptl/medhist-api/pkg/metrics"
)

const defaultQueryTimeout = 5 * time.Second

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db      *sqlx.DB
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewBaseRepository creates a new base repository. A zero timeout uses the default.
func NewBaseRepository(db *sqlx.DB, timeout time.Duration, m *metrics.Metrics) BaseRepository {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return BaseRepository{db: db, timeout: timeout, metrics: m}
}

// query bounds ctx by the query timeout and returns a func that records the
// outcome of the operation.
func (r *BaseRepository) query(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	start := time.Now()

	return ctx, func(err error) {
		cancel()
		if r.metrics == nil {
			return
		}
		status := "success"
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			status = "error"
		}
		r.metrics.DatabaseOperations.WithLabelValues(op, status).Inc()
		r.metrics.DatabaseLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// notFound turns sql.ErrNoRows into a NotFound error for resource
func notFound(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFound(resource, err)
	}
	return err
}
