package usecase

import (
	"fmt"
	"strconv"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/crex-scraper/internal/domain/match"
)

var (
	ErrInvalidInput          = crerr.New("invalid input")
	ErrNotFound              = crerr.New("resource not found")
	ErrUnauthorized          = crerr.New("unauthorized")
	ErrDependencyUnavailable = crerr.New("dependency unavailable")
)

// FetchError is returned once a page could not be retrieved after all retries.
type FetchError struct {
	URL        string
	Attempts   int
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s failed after %d attempt(s)", e.URL, e.Attempts)
	if e.StatusCode > 0 {
		msg += " status=" + strconv.Itoa(e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ReconciliationError wraps a persistence failure for one candidate.
type ReconciliationError struct {
	Candidate match.Candidate
	Err       error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile %s vs %s at %s: %v",
		e.Candidate.HomeTeam,
		e.Candidate.AwayTeam,
		e.Candidate.MatchDate.UTC().Format("2006-01-02T15:04Z"),
		e.Err,
	)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// NotFoundError matches ErrNotFound with errors.Is.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func matchNotFound(id int64) error {
	return &NotFoundError{Resource: "match", ID: strconv.FormatInt(id, 10)}
}
