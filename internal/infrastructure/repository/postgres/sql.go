package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/riskibarqy/crex-scraper/internal/domain/match"
)

const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqUniqueViolation      = "23505"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isRetryableConflict reports errors caused by a concurrent writer on the same key.
func isRetryableConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case pqSerializationFailure, pqDeadlockDetected, pqUniqueViolation:
		return true
	default:
		return false
	}
}

// classifyWriteError tags retryable conflicts with match.ErrConflict.
func classifyWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isRetryableConflict(err) {
		return fmt.Errorf("%s: %w: %w", op, match.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
