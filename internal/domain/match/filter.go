package match

import (
	"strings"
	"time"
)

type DateBucket string

const (
	DateBucketAll      DateBucket = "all"
	DateBucketToday    DateBucket = "today"
	DateBucketUpcoming DateBucket = "upcoming"
	DateBucketPast     DateBucket = "past"
)

// Filter narrows match listings. Zero values mean "no filter".
type Filter struct {
	Status Status
	Team   string
	From   *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

// BucketRange turns a date bucket into a half-open [from, until) range.
// today is the calendar day of now in loc.
func BucketRange(bucket DateBucket, now time.Time, loc *time.Location) (from, until *time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	switch bucket {
	case DateBucketToday:
		local := now.In(loc)
		start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		end := start.AddDate(0, 0, 1)
		return &start, &end
	case DateBucketUpcoming:
		start := now
		return &start, nil
	case DateBucketPast:
		end := now
		return nil, &end
	default:
		return nil, nil
	}
}

// Matches reports whether m passes the non-paging parts of f.
func (f Filter) Matches(m Match) bool {
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.Team != "" && !containsFold(m.HomeTeam.Name, f.Team) && !containsFold(m.AwayTeam.Name, f.Team) {
		return false
	}
	if f.From != nil && m.MatchDate.Before(*f.From) {
		return false
	}
	if f.Until != nil && !m.MatchDate.Before(*f.Until) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
