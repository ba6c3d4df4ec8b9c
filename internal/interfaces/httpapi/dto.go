package httpapi

import (
	"context"
	"time"

	"github.com/riskibarqy/crex-scraper/internal/domain/jobscheduler"
	"github.com/riskibarqy/crex-scraper/internal/domain/match"
	"github.com/riskibarqy/crex-scraper/internal/domain/team"
	"github.com/riskibarqy/crex-scraper/internal/usecase"
)

type teamDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type matchDTO struct {
	ID        int64   `json:"id"`
	HomeTeam  teamDTO `json:"home_team"`
	AwayTeam  teamDTO `json:"away_team"`
	MatchDate string  `json:"match_date"`
	Location  string  `json:"location"`
	Status    string  `json:"status"`
	MatchURL  string  `json:"match_url,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

type matchPageDTO struct {
	Matches      []matchDTO `json:"matches"`
	Page         int        `json:"page"`
	PageSize     int        `json:"page_size"`
	TotalMatches int        `json:"total_matches"`
	TotalPages   int        `json:"total_pages"`
}

// matchFeedItemDTO is the flat projection consumed by feed clients.
type matchFeedItemDTO struct {
	ID        int64  `json:"id"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	MatchDate string `json:"match_date"`
	Location  string `json:"location"`
	Status    string `json:"status"`
	MatchURL  string `json:"match_url,omitempty"`
}

type matchFeedDTO struct {
	Matches      []matchFeedItemDTO `json:"matches"`
	Count        int                `json:"count"`
	TotalMatches int                `json:"total_matches"`
}

type dashboardDTO struct {
	TotalMatches     int        `json:"total_matches"`
	LiveMatches      int        `json:"live_matches"`
	ScheduledMatches int        `json:"scheduled_matches"`
	CompletedMatches int        `json:"completed_matches"`
	RecentMatches    []matchDTO `json:"recent_matches"`
	TodayMatches     []matchDTO `json:"today_matches"`
}

type scrapeDetailDTO struct {
	Match         matchDTO            `json:"match"`
	Detail        match.DetailPayload `json:"detail"`
	StatusChanged bool                `json:"status_changed"`
}

type triggerScrapingDTO struct {
	JobID   string `json:"job_id"`
	Job     string `json:"job"`
	Message string `json:"message"`
}

type dispatchEventDTO struct {
	DispatchID   string         `json:"dispatch_id"`
	Job          string         `json:"job"`
	Path         string         `json:"path"`
	MatchID      int64          `json:"match_id,omitempty"`
	Status       string         `json:"status"`
	Payload      map[string]any `json:"payload,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	OccurredAt   string         `json:"occurred_at"`
	TraceID      string         `json:"trace_id,omitempty"`
}

func formatTime(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

func teamToDTO(v team.Team) teamDTO {
	return teamDTO{ID: v.ID, Name: v.Name}
}

func matchToDTO(v match.Match) matchDTO {
	return matchDTO{
		ID:        v.ID,
		HomeTeam:  teamToDTO(v.HomeTeam),
		AwayTeam:  teamToDTO(v.AwayTeam),
		MatchDate: formatTime(v.MatchDate),
		Location:  v.Location,
		Status:    string(v.Status),
		MatchURL:  v.MatchURL,
		CreatedAt: formatTime(v.CreatedAt),
		UpdatedAt: formatTime(v.UpdatedAt),
	}
}

func matchesToDTO(ctx context.Context, items []match.Match) []matchDTO {
	_, span := startSpan(ctx, "httpapi.matchesToDTO")
	defer span.End()

	out := make([]matchDTO, 0, len(items))
	for _, item := range items {
		out = append(out, matchToDTO(item))
	}
	return out
}

func matchFeedToDTO(ctx context.Context, feed usecase.MatchFeed) matchFeedDTO {
	_, span := startSpan(ctx, "httpapi.matchFeedToDTO")
	defer span.End()

	items := make([]matchFeedItemDTO, 0, len(feed.Matches))
	for _, item := range feed.Matches {
		items = append(items, matchFeedItemDTO{
			ID:        item.ID,
			HomeTeam:  item.HomeTeam.Name,
			AwayTeam:  item.AwayTeam.Name,
			MatchDate: formatTime(item.MatchDate),
			Location:  item.Location,
			Status:    string(item.Status),
			MatchURL:  item.MatchURL,
		})
	}
	return matchFeedDTO{
		Matches:      items,
		Count:        feed.Count,
		TotalMatches: feed.TotalMatches,
	}
}

func dashboardToDTO(ctx context.Context, v usecase.Dashboard) dashboardDTO {
	return dashboardDTO{
		TotalMatches:     v.TotalMatches,
		LiveMatches:      v.LiveMatches,
		ScheduledMatches: v.ScheduledMatches,
		CompletedMatches: v.CompletedMatches,
		RecentMatches:    matchesToDTO(ctx, v.RecentMatches),
		TodayMatches:     matchesToDTO(ctx, v.TodayMatches),
	}
}

func dispatchEventToDTO(v jobscheduler.DispatchEvent) dispatchEventDTO {
	return dispatchEventDTO{
		DispatchID:   v.DispatchID,
		Job:          v.JobName,
		Path:         v.JobPath,
		MatchID:      v.MatchID,
		Status:       string(v.Status),
		Payload:      v.Payload,
		ErrorMessage: v.ErrorMessage,
		OccurredAt:   formatTime(v.OccurredAt),
		TraceID:      v.TraceID,
	}
}
