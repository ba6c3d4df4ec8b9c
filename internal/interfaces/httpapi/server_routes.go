package httpapi

import (
	"net/http"

	"github.com/riskibarqy/crex-scraper/internal/usecase"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/matches", handler.ListMatches)
	mux.HandleFunc("GET /v1/matches/live", handler.ListLiveMatches)
	mux.HandleFunc("GET /v1/matches/feed", handler.GetMatchFeed)
	mux.HandleFunc("GET /v1/matches/{matchID}", handler.GetMatch)
	mux.HandleFunc("POST /v1/matches/{matchID}/scrape", handler.ScrapeMatchDetail)
	mux.HandleFunc("GET /v1/teams", handler.ListTeams)
	mux.HandleFunc("GET /v1/dashboard", handler.GetDashboard)
	mux.HandleFunc("POST /v1/scraping/trigger", handler.TriggerScraping)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	jobs := []usecase.JobName{
		usecase.JobSyncMatchList,
		usecase.JobRefreshLive,
		usecase.JobScrapeDetail,
		usecase.JobTriggerLive,
		usecase.JobCleanup,
	}
	for _, job := range jobs {
		mux.Handle("POST "+job.Path(), RequireInternalJobToken(internalJobToken, handler.RunInternalJob(job)))
	}
	mux.Handle("GET /v1/internal/jobs/dispatches", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ListJobDispatches)))
}
