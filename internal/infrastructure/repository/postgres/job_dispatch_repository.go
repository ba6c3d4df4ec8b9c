package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/crex-scraper/internal/domain/jobscheduler"
	qb "github.com/riskibarqy/crex-scraper/internal/platform/querybuilder"
)

type JobDispatchRepository struct {
	db *sqlx.DB
}

func NewJobDispatchRepository(db *sqlx.DB) *JobDispatchRepository {
	return &JobDispatchRepository{db: db}
}

func (r *JobDispatchRepository) UpsertEvent(ctx context.Context, event jobscheduler.DispatchEvent) error {
	event.DispatchID = strings.TrimSpace(event.DispatchID)
	if err := event.Validate(); err != nil {
		return fmt.Errorf("upsert job dispatch: %w", err)
	}
	dispatchID := event.DispatchID

	jobName := strings.TrimSpace(event.JobName)
	if jobName == "" {
		jobName = "unknown"
	}
	jobPath := strings.TrimSpace(event.JobPath)
	if jobPath == "" {
		jobPath = "/unknown"
	}

	occurredAt := event.OccurredAt.UTC()
	if event.OccurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	payloadJSON, err := marshalPayload(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal job dispatch payload: %w", err)
	}

	model := jobDispatchInsertModel{
		DispatchID: dispatchID,
		JobName:    jobName,
		JobPath:    jobPath,
		MatchID:    sql.NullInt64{Int64: event.MatchID, Valid: event.MatchID > 0},
		Payload:    payloadJSON,
		Status:     string(event.Status),
		LastError:  optionalString(event.ErrorMessage),
	}

	switch event.Status {
	case jobscheduler.StatusSent:
		model.SentAt = &occurredAt
		model.SentTraceID = optionalString(event.TraceID)
		model.SentSpanID = optionalString(event.SpanID)
		model.LastError = nil
	case jobscheduler.StatusCompleted:
		model.CompletedAt = &occurredAt
		model.CompletedTraceID = optionalString(event.TraceID)
		model.CompletedSpanID = optionalString(event.SpanID)
		model.LastError = nil
	case jobscheduler.StatusFailed:
		model.FailedAt = &occurredAt
		model.FailedTraceID = optionalString(event.TraceID)
		model.FailedSpanID = optionalString(event.SpanID)
	}

	query, args, err := qb.InsertModel("job_dispatches", model, `ON CONFLICT (dispatch_id)
DO UPDATE SET
    job_name = EXCLUDED.job_name,
    job_path = EXCLUDED.job_path,
    match_id = COALESCE(EXCLUDED.match_id, job_dispatches.match_id),
    payload = EXCLUDED.payload,
    status = CASE
        WHEN EXCLUDED.status = 'sent' AND job_dispatches.status IN ('completed', 'failed') THEN job_dispatches.status
        ELSE EXCLUDED.status
    END,
    sent_at = COALESCE(EXCLUDED.sent_at, job_dispatches.sent_at),
    completed_at = CASE
        WHEN EXCLUDED.status = 'completed' THEN EXCLUDED.completed_at
        ELSE job_dispatches.completed_at
    END,
    failed_at = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.failed_at
        WHEN EXCLUDED.status = 'completed' THEN NULL
        ELSE job_dispatches.failed_at
    END,
    last_error = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.last_error
        WHEN EXCLUDED.status = 'sent' AND job_dispatches.status = 'failed' THEN job_dispatches.last_error
        ELSE NULL
    END,
    sent_trace_id = COALESCE(EXCLUDED.sent_trace_id, job_dispatches.sent_trace_id),
    sent_span_id = COALESCE(EXCLUDED.sent_span_id, job_dispatches.sent_span_id),
    completed_trace_id = COALESCE(EXCLUDED.completed_trace_id, job_dispatches.completed_trace_id),
    completed_span_id = COALESCE(EXCLUDED.completed_span_id, job_dispatches.completed_span_id),
    failed_trace_id = COALESCE(EXCLUDED.failed_trace_id, job_dispatches.failed_trace_id),
    failed_span_id = COALESCE(EXCLUDED.failed_span_id, job_dispatches.failed_span_id),
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert job dispatch query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert job dispatch dispatch_id=%s status=%s: %w", dispatchID, event.Status, err)
	}

	return nil
}

func (r *JobDispatchRepository) ListRecent(ctx context.Context, limit int) ([]jobscheduler.DispatchEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	query, args, err := qb.Select(
		"dispatch_id", "job_name", "job_path", "match_id", "payload::text AS payload", "status", "last_error", "updated_at",
		"COALESCE(failed_trace_id, completed_trace_id, sent_trace_id) AS trace_id",
		"COALESCE(failed_span_id, completed_span_id, sent_span_id) AS span_id",
	).From("job_dispatches").
		OrderBy("updated_at DESC", "id DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select recent job dispatches query: %w", err)
	}

	var rows []jobDispatchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select recent job dispatches: %w", err)
	}

	out := make([]jobscheduler.DispatchEvent, 0, len(rows))
	for _, row := range rows {
		payload := map[string]any{}
		if err := sonic.UnmarshalString(row.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode job dispatch payload dispatch_id=%s: %w", row.DispatchID, err)
		}
		out = append(out, jobscheduler.DispatchEvent{
			DispatchID:   row.DispatchID,
			JobName:      row.JobName,
			JobPath:      row.JobPath,
			MatchID:      row.MatchID.Int64,
			Status:       jobscheduler.DispatchStatus(row.Status),
			Payload:      payload,
			ErrorMessage: row.LastError.String,
			OccurredAt:   row.UpdatedAt.UTC(),
			TraceID:      row.TraceID.String,
			SpanID:       row.SpanID.String,
		})
	}
	return out, nil
}

func marshalPayload(payload map[string]any) (string, error) {
	if len(payload) == 0 {
		return "{}", nil
	}
	return sonic.MarshalString(payload)
}
