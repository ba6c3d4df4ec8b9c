package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/crex-scraper/internal/platform/logging"
	"github.com/riskibarqy/crex-scraper/internal/usecase"
)

type Handler struct {
	queryService    *usecase.MatchQueryService
	pipeline        *usecase.PipelineService
	jobOrchestrator *usecase.JobOrchestratorService
	logger          *logging.Logger
	validator       *validator.Validate
}

func NewHandler(
	queryService *usecase.MatchQueryService,
	pipeline *usecase.PipelineService,
	jobOrchestrator *usecase.JobOrchestratorService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		queryService:    queryService,
		pipeline:        pipeline,
		jobOrchestrator: jobOrchestrator,
		logger:          logger,
		validator:       validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type listMatchesRequest struct {
	Status   string `validate:"omitempty,max=20"`
	Team     string `validate:"omitempty,max=100"`
	Date     string `validate:"omitempty,oneof=all today upcoming past"`
	Page     int    `validate:"gte=0"`
	PageSize int    `validate:"gte=0"`
}

type matchFeedRequest struct {
	Status string `validate:"omitempty,max=20"`
	Limit  int    `validate:"gte=0"`
}

type listDispatchesRequest struct {
	Limit int `validate:"gte=0,lte=200"`
}

type triggerScrapingRequest struct {
	TaskType string `json:"task_type" validate:"required,oneof=match_list live_matches"`
}

// internalJobRequest mirrors the body published for a queued job unit.
type internalJobRequest struct {
	Job        string `json:"job" validate:"omitempty,max=50"`
	MatchID    int64  `json:"match_id" validate:"gte=0"`
	DispatchID string `json:"dispatch_id" validate:"omitempty,max=200"`
}

// decodeJSONBody treats an empty body as the zero value.
func decodeJSONBody(r *http.Request, out any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidInput, key)
	}
	return value, nil
}

func pathMatchID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("matchID"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid match id %q", usecase.ErrInvalidInput, raw)
	}
	return id, nil
}
