package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
	"github.com/GregMSThompson/utilization-pilot/pkg/logger"
)

type accountStore struct {
	client *firestore.Client
}

func NewAccountStore(client *firestore.Client) *accountStore {
	return &accountStore{client: client}
}

func (s *accountStore) collection(uid string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(uid).Collection("accounts")
}

// providerFields holds only what the provider owns, so merges keep user targets.
// Optional statement fields are omitted when unknown to keep the last known value.
func providerFields(a models.Account, now time.Time) map[string]any {
	fields := map[string]any{
		"accountId":      a.AccountID,
		"bankId":         a.BankID,
		"name":           a.Name,
		"mask":           a.Mask,
		"type":           a.Type,
		"subtype":        a.Subtype,
		"currentBalance": a.CurrentBalance,
		"currency":       a.Currency,
		"updatedAt":      now,
	}
	if a.OfficialName != nil {
		fields["officialName"] = *a.OfficialName
	}
	if a.AvailableBalance != nil {
		fields["availableBalance"] = *a.AvailableBalance
	}
	if a.CreditLimit != nil {
		fields["creditLimit"] = *a.CreditLimit
	}
	if a.LastStatementDate != nil {
		fields["lastStatementDate"] = *a.LastStatementDate
	}
	if a.LastStatementBalance != nil {
		fields["lastStatementBalance"] = *a.LastStatementBalance
	}
	if a.MinimumPayment != nil {
		fields["minimumPayment"] = *a.MinimumPayment
	}
	if a.NextPaymentDueDate != nil {
		fields["nextPaymentDueDate"] = *a.NextPaymentDueDate
	}
	return fields
}

// UpsertFromProvider merges fresh provider data into the stored accounts.
func (s *accountStore) UpsertFromProvider(ctx context.Context, uid string, accounts []models.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	log := logger.FromContext(ctx)
	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(accounts))
	now := time.Now()

	for _, a := range accounts {
		job, err := bw.Set(s.collection(uid).Doc(a.AccountID), providerFields(a, now), firestore.MergeAll)
		if err != nil {
			bw.End()
			return errs.NewDatabaseError("update", "failed to schedule account upsert", err)
		}
		jobs = append(jobs, job)
	}

	bw.End()
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			log.Error("failed to upsert account", "account_id", accounts[i].AccountID, "error", err)
			return errs.NewDatabaseError("update", "failed to upsert account", err)
		}
	}
	return nil
}

func (s *accountStore) List(ctx context.Context, uid string) ([]*models.Account, error) {
	docs, err := s.collection(uid).OrderBy("name", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list accounts", err)
	}
	accounts := make([]*models.Account, 0, len(docs))
	for _, d := range docs {
		var a models.Account
		if err := d.DataTo(&a); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse account data", err)
		}
		accounts = append(accounts, &a)
	}
	return accounts, nil
}

func (s *accountStore) Get(ctx context.Context, uid, accountID string) (*models.Account, error) {
	doc, err := s.collection(uid).Doc(accountID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, errs.NewNotFoundError("account not found")
	}
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to get account", err)
	}
	var a models.Account
	if err := doc.DataTo(&a); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse account data", err)
	}
	return &a, nil
}

// UpdateTargets sets the user-owned fields of one account.
func (s *accountStore) UpdateTargets(ctx context.Context, uid, accountID string, target *float64, paydownLimit *float64) error {
	updates := []firestore.Update{{Path: "updatedAt", Value: time.Now()}}
	if target != nil {
		updates = append(updates, firestore.Update{Path: "targetUtilization", Value: *target})
	}
	if paydownLimit != nil {
		updates = append(updates, firestore.Update{Path: "monthlyPaydownLimit", Value: *paydownLimit})
	}

	_, err := s.collection(uid).Doc(accountID).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return errs.NewNotFoundError("account not found")
	}
	if err != nil {
		return errs.NewDatabaseError("update", "failed to update account targets", err)
	}
	return nil
}

func (s *accountStore) DeleteByBank(ctx context.Context, uid, bankID string) error {
	docs, err := s.collection(uid).Where("bankId", "==", bankID).Documents(ctx).GetAll()
	if err != nil {
		return errs.NewDatabaseError("read", "failed to list bank accounts", err)
	}
	return deleteDocs(ctx, s.client, docs)
}

// deleteDocs removes snapshots in one BulkWriter pass.
func deleteDocs(ctx context.Context, client *firestore.Client, docs []*firestore.DocumentSnapshot) error {
	if len(docs) == 0 {
		return nil
	}
	bw := client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(docs))
	for _, d := range docs {
		job, err := bw.Delete(d.Ref)
		if err != nil {
			bw.End()
			return errs.NewDatabaseError("delete", "failed to schedule delete", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return errs.NewDatabaseError("delete", "failed to delete document", err)
		}
	}
	return nil
}
