package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/crex-scraper/internal/domain/match"
	"github.com/riskibarqy/crex-scraper/internal/domain/team"
)

const (
	matchSelectColumns = "m.id, m.home_team_id, h.name AS home_team_name, m.away_team_id, a.name AS away_team_name, " +
		"m.match_date, m.location, m.status, m.match_url, m.created_at, m.updated_at"
	matchFromClause = "matches m JOIN teams h ON h.id = m.home_team_id JOIN teams a ON a.id = m.away_team_id"
)

type matchInsertModel struct {
	HomeTeamID int64          `db:"home_team_id"`
	AwayTeamID int64          `db:"away_team_id"`
	MatchDate  time.Time      `db:"match_date"`
	Location   string         `db:"location"`
	Status     string         `db:"status"`
	MatchURL   sql.NullString `db:"match_url"`
}

type matchTableModel struct {
	ID           int64          `db:"id"`
	HomeTeamID   int64          `db:"home_team_id"`
	HomeTeamName string         `db:"home_team_name"`
	AwayTeamID   int64          `db:"away_team_id"`
	AwayTeamName string         `db:"away_team_name"`
	MatchDate    time.Time      `db:"match_date"`
	Location     string         `db:"location"`
	Status       string         `db:"status"`
	MatchURL     sql.NullString `db:"match_url"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

type statusCountModel struct {
	Status string `db:"status"`
	Total  int    `db:"total"`
}

func (m matchTableModel) toDomain() match.Match {
	return match.Match{
		ID:        m.ID,
		HomeTeam:  team.Team{ID: m.HomeTeamID, Name: m.HomeTeamName},
		AwayTeam:  team.Team{ID: m.AwayTeamID, Name: m.AwayTeamName},
		MatchDate: m.MatchDate.UTC(),
		Location:  m.Location,
		Status:    match.Status(m.Status),
		MatchURL:  m.MatchURL.String,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}
