package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/middleware"
	"github.com/GregMSThompson/utilization-pilot/internal/response"
)

type DashboardService interface {
	GetDashboard(ctx context.Context, uid string) (dto.DashboardResponse, error)
	History(ctx context.Context, uid string, limit int) (dto.HistoryResponse, error)
	UpdateTargets(ctx context.Context, uid string, req dto.UpdateTargetsRequest) (dto.UpdateTargetsResponse, error)
}

type dashboardHandlers struct {
	ResponseHandler response.ResponseHandler
	DashboardSvc    DashboardService
}

func NewDashboardHandlers(deps *Deps) *dashboardHandlers {
	return &dashboardHandlers{
		ResponseHandler: deps.ResponseHandler,
		DashboardSvc:    deps.DashboardSvc,
	}
}

func (h *dashboardHandlers) DashboardRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetDashboard)
	r.Get("/history", h.History)
	return r
}

func (h *dashboardHandlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	dash, err := h.DashboardSvc.GetDashboard(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, dash)
}

func (h *dashboardHandlers) History(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	hist, err := h.DashboardSvc.History(r.Context(), uid, limit)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, hist)
}

func (h *dashboardHandlers) UpdateTargets(w http.ResponseWriter, r *http.Request) {
	var body dto.UpdateTargetsRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	resp, err := h.DashboardSvc.UpdateTargets(r.Context(), uid, body)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}
