package services

import (
	"context"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500
)

type accountASStore interface {
	List(ctx context.Context, uid string) ([]*models.Account, error)
	Get(ctx context.Context, uid, accountID string) (*models.Account, error)
}

type transactionASStore interface {
	Query(ctx context.Context, uid string, q dto.TransactionQuery, fn func(*models.Transaction) error) error
}

type accountService struct {
	accounts accountASStore
	txs      transactionASStore
}

func NewAccountService(accounts accountASStore, txs transactionASStore) *accountService {
	return &accountService{accounts: accounts, txs: txs}
}

func (s *accountService) ListAccounts(ctx context.Context, uid string) ([]*models.Account, error) {
	accounts, err := s.accounts.List(ctx, uid)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []*models.Account{}
	}
	return accounts, nil
}

// ListTransactions returns the newest transactions of one of the user's accounts.
func (s *accountService) ListTransactions(ctx context.Context, uid, accountID string, limit int) ([]models.Transaction, error) {
	if !ValidAccountID(accountID) {
		return nil, errs.NewValidationError("invalid accountId")
	}
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	if _, err := s.accounts.Get(ctx, uid, accountID); err != nil {
		return nil, err
	}

	out := make([]models.Transaction, 0, limit)
	err := s.txs.Query(ctx, uid, dto.TransactionQuery{AccountID: &accountID, Limit: limit}, func(tx *models.Transaction) error {
		out = append(out, *tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
