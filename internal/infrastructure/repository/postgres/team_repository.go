package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/crex-scraper/internal/domain/team"
	qb "github.com/riskibarqy/crex-scraper/internal/platform/querybuilder"
)

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	query, args, err := qb.Select("id", "name", "created_at").From("teams").
		OrderBy("name", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select teams query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select teams: %w", err)
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, team.Team{ID: row.ID, Name: row.Name})
	}

	return out, nil
}

// getOrCreateTeam relies on the unique index on teams.name: a concurrent insert
// of the same name blocks until the other transaction finishes.
func getOrCreateTeam(ctx context.Context, tx *sqlx.Tx, name string) (team.Team, error) {
	insertQuery, insertArgs, err := qb.InsertModel("teams", teamInsertModel{Name: name}, "ON CONFLICT (name) DO NOTHING")
	if err != nil {
		return team.Team{}, fmt.Errorf("build insert team query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
		return team.Team{}, classifyWriteError(fmt.Sprintf("insert team name=%q", name), err)
	}

	selectQuery, selectArgs, err := qb.Select("id", "name", "created_at").From("teams").
		Where(qb.Eq("name", name)).
		Limit(1).
		ToSQL()
	if err != nil {
		return team.Team{}, fmt.Errorf("build select team by name query: %w", err)
	}

	var row teamTableModel
	if err := tx.GetContext(ctx, &row, selectQuery, selectArgs...); err != nil {
		return team.Team{}, classifyWriteError(fmt.Sprintf("select team name=%q", name), err)
	}
	return team.Team{ID: row.ID, Name: row.Name}, nil
}
