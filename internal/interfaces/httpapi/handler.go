package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/crex-scraper/internal/usecase"
)

func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "ListMatches")
	defer span.End()

	page, err := queryInt(r, "page")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	query := r.URL.Query()
	req := listMatchesRequest{
		Status:   strings.TrimSpace(query.Get("status")),
		Team:     strings.TrimSpace(query.Get("team")),
		Date:     strings.ToLower(strings.TrimSpace(query.Get("date"))),
		Page:     page,
		PageSize: pageSize,
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.queryService.ListMatches(ctx, usecase.MatchListQuery{
		Status:   req.Status,
		Team:     req.Team,
		Date:     req.Date,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "list matches failed", "status", req.Status, "team", req.Team, "date", req.Date, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchPageDTO{
		Matches:      matchesToDTO(ctx, result.Matches),
		Page:         result.Page,
		PageSize:     result.PageSize,
		TotalMatches: result.TotalMatches,
		TotalPages:   result.TotalPages,
	})
}

func (h *Handler) ListLiveMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "ListLiveMatches")
	defer span.End()

	items, err := h.queryService.LiveMatches(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list live matches failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchesToDTO(ctx, items))
}

func (h *Handler) GetMatchFeed(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "GetMatchFeed")
	defer span.End()

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	req := matchFeedRequest{
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
		Limit:  limit,
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	feed, err := h.queryService.MatchFeed(ctx, req.Status, req.Limit)
	if err != nil {
		h.logger.WarnContext(ctx, "get match feed failed", "status", req.Status, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchFeedToDTO(ctx, feed))
}

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "GetMatch")
	defer span.End()

	matchID, err := pathMatchID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.queryService.GetMatch(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "get match failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchToDTO(item))
}

func (h *Handler) ScrapeMatchDetail(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "ScrapeMatchDetail")
	defer span.End()

	matchID, err := pathMatchID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.pipeline.ScrapeDetail(ctx, matchID)
	if err != nil {
		h.logger.ErrorContext(ctx, "scrape match detail failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, scrapeDetailDTO{
		Match:         matchToDTO(result.Match),
		Detail:        result.Detail,
		StatusChanged: result.StatusChanged,
	})
}

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "ListTeams")
	defer span.End()

	items, err := h.queryService.ListTeams(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list teams failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]teamDTO, 0, len(items))
	for _, item := range items {
		out = append(out, teamToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}
