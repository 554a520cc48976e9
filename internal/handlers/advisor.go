package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/middleware"
	"github.com/GregMSThompson/utilization-pilot/internal/response"
)

type AdvisorService interface {
	Query(ctx context.Context, uid, sessionID, message string) (dto.AIQueryResponse, error)
}

type advisorHandlers struct {
	ResponseHandler response.ResponseHandler
	AdvisorSvc      AdvisorService
}

func NewAdvisorHandlers(deps *Deps) *advisorHandlers {
	return &advisorHandlers{
		ResponseHandler: deps.ResponseHandler,
		AdvisorSvc:      deps.AdvisorSvc,
	}
}

func (h *advisorHandlers) AdvisorRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/query", h.Query)
	return r
}

// Query asks the advisor a question. An empty sessionId starts a new session.
func (h *advisorHandlers) Query(w http.ResponseWriter, r *http.Request) {
	var body dto.AIQueryRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("message is required"))
		return
	}

	uid := middleware.UID(r.Context())
	resp, err := h.AdvisorSvc.Query(r.Context(), uid, body.SessionID, body.Message)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}
