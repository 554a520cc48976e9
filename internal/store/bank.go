package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
)

type bankStore struct {
	client *firestore.Client
}

func NewBankStore(client *firestore.Client) *bankStore {
	return &bankStore{client: client}
}

func (s *bankStore) collection(uid string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(uid).Collection("banks")
}

func (s *bankStore) Create(ctx context.Context, uid string, bank *models.Bank) error {
	now := time.Now()
	if bank.CreatedAt.IsZero() {
		bank.CreatedAt = now
	}
	bank.UpdatedAt = now
	if _, err := s.collection(uid).Doc(bank.BankID).Set(ctx, bank); err != nil {
		return errs.NewDatabaseError("create", "failed to create bank", err)
	}
	return nil
}

func (s *bankStore) List(ctx context.Context, uid string) ([]*models.Bank, error) {
	docs, err := s.collection(uid).Documents(ctx).GetAll()
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list banks", err)
	}
	banks := make([]*models.Bank, 0, len(docs))
	for _, d := range docs {
		var b models.Bank
		if err := d.DataTo(&b); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse bank data", err)
		}
		banks = append(banks, &b)
	}
	return banks, nil
}

func (s *bankStore) Get(ctx context.Context, uid, bankID string) (*models.Bank, error) {
	doc, err := s.collection(uid).Doc(bankID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, errs.NewNotFoundError("bank not found")
	}
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to get bank", err)
	}
	var b models.Bank
	if err := doc.DataTo(&b); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse bank data", err)
	}
	return &b, nil
}

// MarkSynced records the outcome of a refresh without touching other fields.
func (s *bankStore) MarkSynced(ctx context.Context, uid, bankID, bankStatus string, at time.Time) error {
	_, err := s.collection(uid).Doc(bankID).Update(ctx, []firestore.Update{
		{Path: "status", Value: bankStatus},
		{Path: "lastSyncedAt", Value: at},
		{Path: "updatedAt", Value: at},
	})
	if status.Code(err) == codes.NotFound {
		return errs.NewNotFoundError("bank not found")
	}
	if err != nil {
		return errs.NewDatabaseError("update", "failed to update bank sync status", err)
	}
	return nil
}

func (s *bankStore) Delete(ctx context.Context, uid, bankID string) error {
	if _, err := s.collection(uid).Doc(bankID).Delete(ctx); err != nil {
		return errs.NewDatabaseError("delete", "failed to delete bank", err)
	}
	return nil
}
