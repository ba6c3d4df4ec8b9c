package memory

import (
	"sync"
	"time"

	"github.com/riskibarqy/crex-scraper/internal/domain/match"
	"github.com/riskibarqy/crex-scraper/internal/domain/team"
)

// Store keeps teams and matches in process. One mutex serializes every write,
// which gives reconciliation the same all-or-nothing behaviour as a transaction.
type Store struct {
	mu sync.RWMutex

	teamsByName map[string]team.Team
	teamSeq     int64

	matches  map[int64]match.Match
	matchKey map[matchKey]int64
	matchSeq int64

	now func() time.Time
}

type matchKey struct {
	homeTeamID int64
	awayTeamID int64
	matchDate  int64
}

func NewStore() *Store {
	return &Store{
		teamsByName: make(map[string]team.Team),
		matches:     make(map[int64]match.Match),
		matchKey:    make(map[matchKey]int64),
		now:         time.Now,
	}
}

func (s *Store) Matches() *MatchRepository {
	return &MatchRepository{store: s}
}

func (s *Store) Teams() *TeamRepository {
	return &TeamRepository{store: s}
}

func keyOf(homeTeamID, awayTeamID int64, at time.Time) matchKey {
	return matchKey{homeTeamID: homeTeamID, awayTeamID: awayTeamID, matchDate: at.UTC().UnixNano()}
}

// getOrCreateTeamLocked must be called with s.mu held for writing.
func (s *Store) getOrCreateTeamLocked(name string) team.Team {
	name = team.NormalizeName(name)
	if item, ok := s.teamsByName[name]; ok {
		return item
	}
	s.teamSeq++
	item := team.Team{ID: s.teamSeq, Name: name}
	s.teamsByName[name] = item
	return item
}
