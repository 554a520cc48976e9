package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
)

const maxTransactionPage = 500

type transactionStore struct {
	client *firestore.Client
}

func NewTransactionStore(client *firestore.Client) *transactionStore {
	return &transactionStore{client: client}
}

func (s *transactionStore) txCollection(uid string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(uid).Collection("transactions")
}

func (s *transactionStore) cursorDoc(uid, bankID string) *firestore.DocumentRef {
	return s.client.Collection("users").Doc(uid).Collection("plaid_cursors").Doc(bankID)
}

func (s *transactionStore) UpsertBatch(ctx context.Context, uid string, txs []models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(txs))
	now := time.Now()

	for _, t := range txs {
		t.UpdatedAt = now
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}

		doc := s.txCollection(uid).Doc(t.TransactionID)
		job, err := bw.Set(doc, t, firestore.MergeAll)
		if err != nil {
			bw.End()
			return errs.NewDatabaseError("update", "failed to schedule transaction upsert", err)
		}
		jobs = append(jobs, job)
	}

	// Flush and close the writer, then wait on each job for errors.
	bw.End()
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return errs.NewDatabaseError("update", "failed to upsert transaction", err)
		}
	}

	return nil
}

// DeleteBatch removes transactions the provider reported as removed.
func (s *transactionStore) DeleteBatch(ctx context.Context, uid string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(ids))
	for _, id := range ids {
		job, err := bw.Delete(s.txCollection(uid).Doc(id))
		if err != nil {
			bw.End()
			return errs.NewDatabaseError("delete", "failed to schedule transaction delete", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()
	for _, job := range jobs {
		if _, err := job.Results(); err != nil && status.Code(err) != codes.NotFound {
			return errs.NewDatabaseError("delete", "failed to delete transaction", err)
		}
	}
	return nil
}

// Query streams matching transactions, newest first, to fn.
func (s *transactionStore) Query(ctx context.Context, uid string, q dto.TransactionQuery, fn func(*models.Transaction) error) error {
	query := s.txCollection(uid).Query
	if q.BankID != nil {
		query = query.Where("bankId", "==", *q.BankID)
	}
	if q.AccountID != nil {
		query = query.Where("accountId", "==", *q.AccountID)
	}
	if q.Pending != nil {
		query = query.Where("pending", "==", *q.Pending)
	}
	if q.DateFrom != nil {
		query = query.Where("date", ">=", *q.DateFrom)
	}
	if q.DateTo != nil {
		query = query.Where("date", "<=", *q.DateTo)
	}
	query = query.OrderBy("date", firestore.Desc)

	limit := q.Limit
	if limit <= 0 || limit > maxTransactionPage {
		limit = maxTransactionPage
	}
	query = query.Limit(limit)

	iter := query.Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return errs.NewDatabaseError("read", "failed to query transactions", err)
		}
		var tx models.Transaction
		if err := doc.DataTo(&tx); err != nil {
			return errs.NewDatabaseError("read", "failed to parse transaction data", err)
		}
		if err := fn(&tx); err != nil {
			return err
		}
	}
}

func (s *transactionStore) DeleteByBank(ctx context.Context, uid, bankID string) error {
	docs, err := s.txCollection(uid).Where("bankId", "==", bankID).Documents(ctx).GetAll()
	if err != nil {
		return errs.NewDatabaseError("read", "failed to list bank transactions", err)
	}
	return deleteDocs(ctx, s.client, docs)
}

func (s *transactionStore) GetCursor(ctx context.Context, uid, bankID string) (string, error) {
	snap, err := s.cursorDoc(uid, bankID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", nil
	}
	if err != nil {
		return "", errs.NewDatabaseError("read", "failed to get sync cursor", err)
	}
	cursor, ok := snap.Data()["cursor"].(string)
	if !ok {
		return "", nil
	}
	return cursor, nil
}

func (s *transactionStore) SetCursor(ctx context.Context, uid, bankID, cursor string) error {
	_, err := s.cursorDoc(uid, bankID).Set(ctx, map[string]interface{}{
		"cursor":    cursor,
		"updatedAt": time.Now(),
	}, firestore.MergeAll)
	if err != nil {
		return errs.NewDatabaseError("update", "failed to set sync cursor", err)
	}
	return nil
}

func (s *transactionStore) DeleteCursor(ctx context.Context, uid, bankID string) error {
	if _, err := s.cursorDoc(uid, bankID).Delete(ctx); err != nil {
		return errs.NewDatabaseError("delete", "failed to delete sync cursor", err)
	}
	return nil
}
