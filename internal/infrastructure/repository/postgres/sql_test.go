package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"

	"github.com/riskibarqy/crex-scraper/internal/domain/match"
)

func TestIsRetryableConflict(t *testing.T) {
	for code, want := range map[string]bool{
		"40001": true,
		"40P01": true,
		"23505": true,
		"23503": false,
		"42P01": false,
	} {
		err := fmt.Errorf("insert match: %w", &pq.Error{Code: pq.ErrorCode(code)})
		if got := isRetryableConflict(err); got != want {
			t.Fatalf("code %s: got %v want %v", code, got, want)
		}
	}

	if isRetryableConflict(fakeErr("pq: relation matches does not exist")) {
		t.Fatalf("expected plain errors to be non-retryable")
	}
}

func TestClassifyWriteError(t *testing.T) {
	err := classifyWriteError("insert match", &pq.Error{Code: "40P01"})
	if !errors.Is(err, match.ErrConflict) {
		t.Fatalf("expected conflict marker, got %v", err)
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		t.Fatalf("expected pq error to stay reachable")
	}

	if err := classifyWriteError("insert match", fakeErr("boom")); errors.Is(err, match.ErrConflict) {
		t.Fatalf("unexpected conflict marker on %v", err)
	}
	if classifyWriteError("noop", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestNullString(t *testing.T) {
	if got := nullString("  "); got.Valid {
		t.Fatalf("expected blank string to be null")
	}
	if got := nullString(" https://crex.com/match/1 "); !got.Valid || got.String != "https://crex.com/match/1" {
		t.Fatalf("unexpected null string %+v", got)
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
