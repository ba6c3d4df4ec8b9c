package match

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/riskibarqy/crex-scraper/internal/domain/team"
)

type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusLive      Status = "Live"
	StatusCompleted Status = "Completed"
)

// ParseStatus accepts a status name in any letter case.
func ParseStatus(value string) (Status, bool) {
	value = strings.TrimSpace(value)
	for _, status := range []Status{StatusScheduled, StatusLive, StatusCompleted} {
		if strings.EqualFold(value, string(status)) {
			return status, true
		}
	}
	return "", false
}

const (
	DefaultLocation   = "TBD"
	MaxLocationLength = 255
	MaxStatusLength   = 20
)

// ErrConflict marks a storage write that lost a race and is safe to retry.
var ErrConflict = errors.New("match write conflict")

// Match is one fixture between two distinct teams.
type Match struct {
	ID        int64
	HomeTeam  team.Team
	AwayTeam  team.Team
	MatchDate time.Time
	Location  string
	Status    Status
	MatchURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m Match) String() string {
	return fmt.Sprintf("%s vs %s - %s", m.HomeTeam.Name, m.AwayTeam.Name, m.MatchDate.UTC().Format("2006-01-02 15:04"))
}

// Candidate is an extracted match that has not been persisted yet.
type Candidate struct {
	HomeTeam  string
	AwayTeam  string
	MatchDate time.Time
	Location  string
	Status    Status
	MatchURL  string
}

// Normalize trims names, applies insert defaults and moves the date to UTC.
func (c Candidate) Normalize() Candidate {
	c.HomeTeam = team.NormalizeName(c.HomeTeam)
	c.AwayTeam = team.NormalizeName(c.AwayTeam)
	c.Location = strings.TrimSpace(c.Location)
	if c.Location == "" {
		c.Location = DefaultLocation
	}
	if c.Status == "" {
		c.Status = StatusScheduled
	}
	c.MatchURL = strings.TrimSpace(c.MatchURL)
	c.MatchDate = c.MatchDate.UTC()
	return c
}

func (c Candidate) Validate() error {
	if err := (team.Team{Name: c.HomeTeam}).Validate(); err != nil {
		return fmt.Errorf("home %w", err)
	}
	if err := (team.Team{Name: c.AwayTeam}).Validate(); err != nil {
		return fmt.Errorf("away %w", err)
	}
	if team.SameName(c.HomeTeam, c.AwayTeam) {
		return fmt.Errorf("home and away team must differ: %q", c.HomeTeam)
	}
	if c.MatchDate.IsZero() {
		return fmt.Errorf("match date is required")
	}
	if utf8.RuneCountInString(c.Location) > MaxLocationLength {
		return fmt.Errorf("location exceeds %d characters", MaxLocationLength)
	}
	if len(c.Status) > MaxStatusLength {
		return fmt.Errorf("status exceeds %d characters", MaxStatusLength)
	}
	return nil
}

// Key is the natural key used to deduplicate matches across syncs.
// Team names compare exactly after whitespace folding, like the unique index on teams.name.
type Key struct {
	HomeTeam  string
	AwayTeam  string
	MatchDate time.Time
}

func (c Candidate) Key() Key {
	return Key{
		HomeTeam:  team.NormalizeName(c.HomeTeam),
		AwayTeam:  team.NormalizeName(c.AwayTeam),
		MatchDate: c.MatchDate.UTC(),
	}
}
