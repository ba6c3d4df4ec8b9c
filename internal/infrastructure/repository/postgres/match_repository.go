package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/crex-scraper/internal/domain/match"
	qb "github.com/riskibarqy/crex-scraper/internal/platform/querybuilder"
)

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) ReconcileCandidate(ctx context.Context, candidate match.Candidate) (match.Match, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return match.Match{}, false, fmt.Errorf("begin reconcile match tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	home, err := getOrCreateTeam(ctx, tx, candidate.HomeTeam)
	if err != nil {
		return match.Match{}, false, err
	}
	away, err := getOrCreateTeam(ctx, tx, candidate.AwayTeam)
	if err != nil {
		return match.Match{}, false, err
	}

	insertQuery, insertArgs, err := qb.InsertModel("matches", matchInsertModel{
		HomeTeamID: home.ID,
		AwayTeamID: away.ID,
		MatchDate:  candidate.MatchDate.UTC(),
		Location:   candidate.Location,
		Status:     string(candidate.Status),
		MatchURL:   nullString(candidate.MatchURL),
	}, "ON CONFLICT (home_team_id, away_team_id, match_date) DO NOTHING RETURNING id")
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build insert match query: %w", err)
	}

	created := true
	var id int64
	if err := tx.GetContext(ctx, &id, insertQuery, insertArgs...); err != nil {
		if !isNotFound(err) {
			return match.Match{}, false, classifyWriteError("insert match", err)
		}
		created = false

		lookupQuery, lookupArgs, err := qb.Select("id").From("matches").
			Where(
				qb.Eq("home_team_id", home.ID),
				qb.Eq("away_team_id", away.ID),
				qb.Eq("match_date", candidate.MatchDate.UTC()),
			).
			Limit(1).
			ToSQL()
		if err != nil {
			return match.Match{}, false, fmt.Errorf("build select match by key query: %w", err)
		}
		if err := tx.GetContext(ctx, &id, lookupQuery, lookupArgs...); err != nil {
			return match.Match{}, false, classifyWriteError("select match by key", err)
		}
	}

	item, exists, err := getMatch(ctx, tx, id)
	if err != nil {
		return match.Match{}, false, err
	}
	if !exists {
		return match.Match{}, false, fmt.Errorf("reconciled match id=%d vanished: %w", id, match.ErrConflict)
	}

	if err := tx.Commit(); err != nil {
		return match.Match{}, false, classifyWriteError("commit reconcile match tx", err)
	}
	return item, created, nil
}

func (r *MatchRepository) GetByID(ctx context.Context, id int64) (match.Match, bool, error) {
	return getMatch(ctx, r.db, id)
}

func getMatch(ctx context.Context, q sqlx.QueryerContext, id int64) (match.Match, bool, error) {
	query, args, err := qb.Select(matchSelectColumns).From(matchFromClause).
		Where(qb.Eq("m.id", id)).
		Limit(1).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build select match by id query: %w", err)
	}

	var row matchTableModel
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("select match by id=%d: %w", id, err)
	}
	return row.toDomain(), true, nil
}

func (r *MatchRepository) ListByDateRange(ctx context.Context, from, to time.Time, statuses ...match.Status) ([]match.Match, error) {
	conditions := []qb.Condition{
		qb.Gte("m.match_date", from.UTC()),
		qb.Lte("m.match_date", to.UTC()),
	}
	if len(statuses) > 0 {
		values := make([]any, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, string(s))
		}
		conditions = append(conditions, qb.In("m.status", values))
	}

	query, args, err := qb.Select(matchSelectColumns).From(matchFromClause).
		Where(conditions...).
		OrderBy("m.match_date", "m.id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select matches by date range query: %w", err)
	}

	return r.selectMatches(ctx, "select matches by date range", query, args)
}

func (r *MatchRepository) List(ctx context.Context, filter match.Filter) ([]match.Match, error) {
	query, args, err := qb.Select(matchSelectColumns).From(matchFromClause).
		Where(filterConditions(filter)...).
		OrderBy("m.match_date DESC", "m.id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select matches query: %w", err)
	}

	return r.selectMatches(ctx, "select matches", query, args)
}

func (r *MatchRepository) Count(ctx context.Context, filter match.Filter) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From(matchFromClause).
		Where(filterConditions(filter)...).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count matches query: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count matches: %w", err)
	}
	return total, nil
}

func (r *MatchRepository) CountByStatus(ctx context.Context) (map[match.Status]int, error) {
	query, args, err := qb.Select("status", "COUNT(*) AS total").From("matches").
		GroupBy("status").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build count matches by status query: %w", err)
	}

	var rows []statusCountModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count matches by status: %w", err)
	}

	out := make(map[match.Status]int, len(rows))
	for _, row := range rows {
		out[match.Status(row.Status)] = row.Total
	}
	return out, nil
}

func (r *MatchRepository) UpdateStatus(ctx context.Context, id int64, status match.Status) error {
	query, args, err := qb.Update("matches").
		Set("status", string(status)).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update match status query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update match status id=%d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update match status rows affected id=%d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("update match status id=%d: no rows updated", id)
	}
	return nil
}

func (r *MatchRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query, args, err := qb.DeleteFrom("matches").
		Where(qb.Lt("match_date", cutoff.UTC())).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build delete old matches query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete matches before %s: %w", cutoff.UTC().Format(time.RFC3339), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete old matches rows affected: %w", err)
	}
	return int(affected), nil
}

func (r *MatchRepository) selectMatches(ctx context.Context, op, query string, args []any) ([]match.Match, error) {
	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func filterConditions(filter match.Filter) []qb.Condition {
	conditions := make([]qb.Condition, 0, 4)
	if filter.Status != "" {
		conditions = append(conditions, qb.Eq("m.status", string(filter.Status)))
	}
	if filter.Team != "" {
		conditions = append(conditions, qb.Or(
			qb.ILike("h.name", filter.Team),
			qb.ILike("a.name", filter.Team),
		))
	}
	if filter.From != nil {
		conditions = append(conditions, qb.Gte("m.match_date", filter.From.UTC()))
	}
	if filter.Until != nil {
		conditions = append(conditions, qb.Lt("m.match_date", filter.Until.UTC()))
	}
	return conditions
}
