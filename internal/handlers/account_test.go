package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
)

type stubAccountService struct {
	accounts []*models.Account
	txs      []models.Transaction
	err      error

	gotAccountID string
	gotLimit     int
}

func (s *stubAccountService) ListAccounts(_ context.Context, _ string) ([]*models.Account, error) {
	return s.accounts, s.err
}

func (s *stubAccountService) ListTransactions(_ context.Context, _, accountID string, limit int) ([]models.Transaction, error) {
	s.gotAccountID = accountID
	s.gotLimit = limit
	return s.txs, s.err
}

func TestListAccounts_OK(t *testing.T) {
	svc := &stubAccountService{accounts: []*models.Account{{AccountID: "acc-1"}}}
	resp := &stubResponseHandler{}
	h := NewAccountHandlers(&Deps{ResponseHandler: resp, AccountSvc: svc})

	req := withUID(httptest.NewRequest(http.MethodGet, "/accounts", nil), "uid1")
	h.ListAccounts(httptest.NewRecorder(), req)

	got, ok := resp.writeSuccessData.([]*models.Account)
	if !ok || len(got) != 1 || got[0].AccountID != "acc-1" {
		t.Fatalf("unexpected data: %#v", resp.writeSuccessData)
	}
}

func TestListTransactions_ParamsPassed(t *testing.T) {
	svc := &stubAccountService{}
	resp := &stubResponseHandler{}
	h := NewAccountHandlers(&Deps{ResponseHandler: resp, AccountSvc: svc})

	req := httptest.NewRequest(http.MethodGet, "/accounts/acc-1/transactions?limit=25", nil)
	req = withChiParam(req, "accountId", "acc-1")
	req = withUID(req, "uid1")
	h.ListTransactions(httptest.NewRecorder(), req)

	if svc.gotAccountID != "acc-1" || svc.gotLimit != 25 {
		t.Fatalf("service got account=%q limit=%d", svc.gotAccountID, svc.gotLimit)
	}
	got, ok := resp.writeSuccessData.([]models.Transaction)
	if !ok || got == nil {
		t.Fatalf("expected non-nil empty slice, got %#v", resp.writeSuccessData)
	}
}

func TestListTransactions_NegativeLimit(t *testing.T) {
	svc := &stubAccountService{}
	resp := &stubResponseHandler{}
	h := NewAccountHandlers(&Deps{ResponseHandler: resp, AccountSvc: svc})

	req := httptest.NewRequest(http.MethodGet, "/accounts/acc-1/transactions?limit=-3", nil)
	req = withChiParam(req, "accountId", "acc-1")
	h.ListTransactions(httptest.NewRecorder(), req)

	if !resp.handleErrorCalled {
		t.Fatal("expected HandleError")
	}
	if svc.gotAccountID != "" {
		t.Fatal("service should not be called")
	}
}

func TestListTransactions_UnknownAccount(t *testing.T) {
	svc := &stubAccountService{err: errs.NewNotFoundError("account not found")}
	h := NewAccountHandlers(&Deps{ResponseHandler: testResponseHandler(), AccountSvc: svc})

	req := httptest.NewRequest(http.MethodGet, "/accounts/acc-x/transactions", nil)
	req = withChiParam(req, "accountId", "acc-x")
	rr := httptest.NewRecorder()
	h.ListTransactions(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}
