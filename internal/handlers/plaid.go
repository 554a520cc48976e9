package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/middleware"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
	"github.com/GregMSThompson/utilization-pilot/internal/response"
	"github.com/GregMSThompson/utilization-pilot/pkg/logger"
)

const (
	maxPublicTokenLen     = 200
	maxInstitutionNameLen = 100
	verificationHeader    = "Plaid-Verification"
)

var publicTokenPattern = regexp.MustCompile(`^public-[a-z]+-[A-Za-z0-9-]+$`)

type PlaidService interface {
	CreateLinkToken(ctx context.Context, uid string) (string, error)
	ExchangePublicToken(ctx context.Context, uid string, req dto.ExchangeTokenRequest) (dto.ExchangeTokenResponse, error)
	SyncAccounts(ctx context.Context, uid string, bankID *string) (dto.AccountSyncResult, error)
	SyncTransactions(ctx context.Context, uid string, bankID *string) (dto.PlaidServiceSyncResult, error)
	HandleWebhook(ctx context.Context, body []byte, signedJWT string) error
}

type BankService interface {
	ListBanks(ctx context.Context, uid string) ([]*models.Bank, error)
	DeleteBank(ctx context.Context, uid, bankID string) error
}

type plaidHandlers struct {
	ResponseHandler response.ResponseHandler
	PlaidSvc        PlaidService
	BankSvc         BankService
}

func NewPlaidHandlers(deps *Deps) *plaidHandlers {
	return &plaidHandlers{
		ResponseHandler: deps.ResponseHandler,
		PlaidSvc:        deps.PlaidSvc,
		BankSvc:         deps.BankSvc,
	}
}

func (h *plaidHandlers) BankRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListBanks)
	r.Delete("/{bankId}", h.DeleteBank)
	return r
}

func (h *plaidHandlers) CreateLinkToken(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	linkToken, err := h.PlaidSvc.CreateLinkToken(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, map[string]string{"link_token": linkToken})
}

func (h *plaidHandlers) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	var body dto.ExchangeTokenRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	if err := validateExchange(&body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	resp, err := h.PlaidSvc.ExchangePublicToken(r.Context(), uid, body)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}

func validateExchange(req *dto.ExchangeTokenRequest) error {
	req.PublicToken = strings.TrimSpace(req.PublicToken)
	if req.PublicToken == "" {
		return errs.NewValidationError("public_token is required")
	}
	if len(req.PublicToken) > maxPublicTokenLen || !publicTokenPattern.MatchString(req.PublicToken) {
		return errs.NewValidationError("public_token is malformed")
	}

	name := strings.TrimSpace(req.Metadata.Institution.Name)
	if len(name) > maxInstitutionNameLen {
		return errs.NewValidationError("institution name must be at most 100 characters")
	}
	if strings.ContainsAny(name, `<>"'`) {
		return errs.NewValidationError("institution name contains invalid characters")
	}
	req.Metadata.Institution.Name = name
	return nil
}

func (h *plaidHandlers) ListBanks(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	banks, err := h.BankSvc.ListBanks(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	if banks == nil {
		banks = []*models.Bank{}
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, banks)
}

func (h *plaidHandlers) DeleteBank(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	bankID := chi.URLParam(r, "bankId")
	if bankID == "" {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("bankId is required"))
		return
	}

	if err := h.BankSvc.DeleteBank(r.Context(), uid, bankID); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}

type syncResponse struct {
	Accounts     dto.AccountSyncResult       `json:"accounts"`
	Transactions *dto.PlaidServiceSyncResult `json:"transactions,omitempty"`
}

// Sync refreshes balances, then transactions. A transaction failure does not
// discard the balance refresh that already succeeded.
func (h *plaidHandlers) Sync(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BankID *string `json:"bankId,omitempty"`
	}
	// empty body syncs every bank
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	ctx := r.Context()
	uid := middleware.UID(ctx)
	accounts, err := h.PlaidSvc.SyncAccounts(ctx, uid, body.BankID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	resp := syncResponse{Accounts: accounts}
	txs, err := h.PlaidSvc.SyncTransactions(ctx, uid, body.BankID)
	if err != nil {
		logger.FromContext(ctx).Warn("transaction sync failed", "error", err)
	} else {
		resp.Transactions = &txs
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}

// Webhook is unauthenticated; the Plaid-Verification JWT authenticates the body.
func (h *plaidHandlers) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("unreadable webhook body"))
		return
	}

	if err := h.PlaidSvc.HandleWebhook(r.Context(), body, r.Header.Get(verificationHeader)); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, map[string]bool{"received": true})
}
