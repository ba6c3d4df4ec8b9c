package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/riskibarqy/crex-scraper/internal/usecase"
)

const defaultDispatchListLimit = 50

func (h *Handler) TriggerScraping(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "TriggerScraping")
	defer span.End()

	if h.jobOrchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: job orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req triggerScrapingRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	req.TaskType = strings.TrimSpace(req.TaskType)
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	handle, err := h.jobOrchestrator.Trigger(ctx, req.TaskType)
	if err != nil {
		h.logger.WarnContext(ctx, "trigger scraping failed", "task_type", req.TaskType, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusAccepted, triggerScrapingDTO{
		JobID:   handle.ID(),
		Job:     string(handle.Job().Name),
		Message: "scraping task queued",
	})
}

// RunInternalJob executes one queued unit synchronously. The job comes from
// the route; the body carries the dispatch id and the match id when needed.
func (h *Handler) RunInternalJob(job usecase.JobName) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startHandlerSpan(r, "RunInternalJob")
		defer span.End()

		if h.jobOrchestrator == nil {
			writeError(ctx, w, fmt.Errorf("%w: job orchestrator is not configured", usecase.ErrDependencyUnavailable))
			return
		}

		var req internalJobRequest
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}
		if err := h.validateRequest(ctx, req); err != nil {
			writeError(ctx, w, err)
			return
		}
		if name := strings.TrimSpace(req.Job); name != "" && name != string(job) {
			writeError(ctx, w, fmt.Errorf("%w: body job %q does not match route job %q", usecase.ErrInvalidInput, name, job))
			return
		}

		result, err := h.jobOrchestrator.Run(ctx, usecase.JobUnit{
			Name:       job,
			MatchID:    req.MatchID,
			DispatchID: strings.TrimSpace(req.DispatchID),
		})
		if err != nil {
			h.logger.WarnContext(ctx, "run internal job failed",
				"job", job,
				"match_id", req.MatchID,
				"dispatch_id", req.DispatchID,
				"error", err,
			)
			writeError(ctx, w, err)
			return
		}

		writeSuccess(ctx, w, http.StatusOK, result)
	})
}

func (h *Handler) ListJobDispatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "ListJobDispatches")
	defer span.End()

	if h.jobOrchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: job orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	req := listDispatchesRequest{Limit: limit}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultDispatchListLimit
	}

	items, err := h.jobOrchestrator.RecentDispatches(ctx, req.Limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list job dispatches failed", "limit", req.Limit, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]dispatchEventDTO, 0, len(items))
	for _, item := range items {
		out = append(out, dispatchEventToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}
