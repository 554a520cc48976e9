package services

import (
	"context"
	"errors"

	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
	"github.com/GregMSThompson/utilization-pilot/pkg/logger"
)

type bankBSStore interface {
	List(ctx context.Context, uid string) ([]*models.Bank, error)
	Get(ctx context.Context, uid, bankID string) (*models.Bank, error)
	Delete(ctx context.Context, uid, bankID string) error
}

type transactionBSStore interface {
	DeleteByBank(ctx context.Context, uid, bankID string) error
	DeleteCursor(ctx context.Context, uid, bankID string) error
}

type accountBSStore interface {
	DeleteByBank(ctx context.Context, uid, bankID string) error
}

type itemBSStore interface {
	DeleteItem(ctx context.Context, itemID string) error
}

type tokenBSVault interface {
	GetPlaidToken(ctx context.Context, uid, itemID string) (string, error)
	DeletePlaidToken(ctx context.Context, uid, itemID string) error
}

type itemRemover interface {
	RemoveItem(ctx context.Context, accessToken string) error
}

type bankService struct {
	banks    bankBSStore
	txs      transactionBSStore
	accounts accountBSStore
	items    itemBSStore
	tokens   tokenBSVault
	plaid    itemRemover
}

func NewBankService(banks bankBSStore, txs transactionBSStore, accounts accountBSStore, items itemBSStore, tokens tokenBSVault, plaid itemRemover) *bankService {
	return &bankService{
		banks:    banks,
		txs:      txs,
		accounts: accounts,
		items:    items,
		tokens:   tokens,
		plaid:    plaid,
	}
}

func (s *bankService) ListBanks(ctx context.Context, uid string) ([]*models.Bank, error) {
	return s.banks.List(ctx, uid)
}

// DeleteBank revokes the item at Plaid and removes everything stored for it.
// A failed revoke is logged and local cleanup continues.
func (s *bankService) DeleteBank(ctx context.Context, uid, bankID string) error {
	log := logger.FromContext(ctx)

	if _, err := s.banks.Get(ctx, uid, bankID); err != nil {
		return err
	}

	token, err := s.tokens.GetPlaidToken(ctx, uid, bankID)
	switch {
	case err == nil:
		if err := s.plaid.RemoveItem(ctx, token); err != nil {
			log.Warn("plaid item removal failed", "bank_id", bankID, "error", err)
		}
	case isNotFound(err):
		log.Warn("no access token stored for bank", "bank_id", bankID)
	default:
		return err
	}

	// TODO: Make deletions atomic or add retries to avoid partial cleanup on failure.
	if err := s.txs.DeleteByBank(ctx, uid, bankID); err != nil {
		return err
	}
	if err := s.txs.DeleteCursor(ctx, uid, bankID); err != nil {
		return err
	}
	if err := s.accounts.DeleteByBank(ctx, uid, bankID); err != nil {
		return err
	}
	if err := s.tokens.DeletePlaidToken(ctx, uid, bankID); err != nil {
		return err
	}
	if err := s.items.DeleteItem(ctx, bankID); err != nil {
		return err
	}
	if err := s.banks.Delete(ctx, uid, bankID); err != nil {
		return err
	}

	log.Info("bank deleted", "bank_id", bankID)
	return nil
}

func isNotFound(err error) bool {
	var nf *errs.NotFoundError
	return errors.As(err, &nf)
}
