package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/utilization-pilot/internal/middleware"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
	"github.com/GregMSThompson/utilization-pilot/internal/response"
)

type AccountService interface {
	ListAccounts(ctx context.Context, uid string) ([]*models.Account, error)
	ListTransactions(ctx context.Context, uid, accountID string, limit int) ([]models.Transaction, error)
}

type accountHandlers struct {
	ResponseHandler response.ResponseHandler
	AccountSvc      AccountService
}

func NewAccountHandlers(deps *Deps) *accountHandlers {
	return &accountHandlers{
		ResponseHandler: deps.ResponseHandler,
		AccountSvc:      deps.AccountSvc,
	}
}

func (h *accountHandlers) AccountRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListAccounts)
	r.Get("/{accountId}/transactions", h.ListTransactions)
	return r
}

func (h *accountHandlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	accounts, err := h.AccountSvc.ListAccounts(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, accounts)
}

func (h *accountHandlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	txs, err := h.AccountSvc.ListTransactions(r.Context(), uid, chi.URLParam(r, "accountId"), limit)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, txs)
}
