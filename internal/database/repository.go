package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/binyominzeev/vidfaq/internal/collection"
	"github.com/binyominzeev/vidfaq/internal/logging"
	"github.com/binyominzeev/vidfaq/internal/metrics"
	"github.com/binyominzeev/vidfaq/internal/profile"
)

const uniqueViolation = "23505"

// Repository provides database operations
type Repository struct {
	db     *DB
	logger *logging.Logger
}

// NewRepository creates a new repository. A nil logger discards operation logs.
func NewRepository(db *DB, logger *logging.Logger) *Repository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Repository{db: db, logger: logger}
}

// observe records duration and outcome of a repository call
func (r *Repository) observe(operation string, start time.Time, errp *error) {
	duration := time.Since(start)
	status := "success"
	if *errp != nil {
		status = "error"
	}
	metrics.RecordDatabaseOperation(operation, status, duration.Seconds())
	r.logger.LogDatabaseOperation(operation, duration, *errp)
}

// mapConstraintError translates unique violations into domain errors
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}

	switch pgErr.ConstraintName {
	case "video_entries_owner_slug_key":
		return collection.ErrDuplicateTitle
	case "video_entries_owner_position_key":
		return collection.ErrReorderConflict
	case "idx_profiles_subdomain":
		return profile.ErrSubdomainTaken
	default:
		return fmt.Errorf("unique constraint %s violated", pgErr.ConstraintName)
	}
}

// wrapError maps constraint violations and wraps everything else
func wrapError(action string, err error) error {
	if mapped := mapConstraintError(err); mapped != nil {
		return mapped
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
