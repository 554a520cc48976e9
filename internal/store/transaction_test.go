package store

import (
	"context"
	"fmt"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
)

func emulatorClient(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "test-project")
	if err != nil {
		t.Fatalf("firestore client error: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func cardTx(id, bankID, accountID, date string, amount float64) models.Transaction {
	return models.Transaction{
		TransactionID: id,
		BankID:        bankID,
		AccountID:     accountID,
		Name:          "purchase " + id,
		Amount:        amount,
		Currency:      "USD",
		Date:          date,
	}
}

func queryIDs(t *testing.T, s *transactionStore, uid string, q dto.TransactionQuery) []string {
	t.Helper()
	var ids []string
	err := s.Query(context.Background(), uid, q, func(tx *models.Transaction) error {
		ids = append(ids, tx.TransactionID)
		return nil
	})
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	return ids
}

func TestTransactionAccountQueryWithEmulator(t *testing.T) {
	client := emulatorClient(t)
	ctx := context.Background()
	s := NewTransactionStore(client)
	uid := "tx-" + uuid.NewString()

	err := s.UpsertBatch(ctx, uid, []models.Transaction{
		cardTx("t1", "b1", "acc-1", "2025-01-05", 20),
		cardTx("t2", "b1", "acc-1", "2025-01-12", 35),
		cardTx("t3", "b1", "acc-1", "2025-01-18", 8),
		cardTx("t4", "b2", "acc-2", "2025-01-15", 120),
	})
	if err != nil {
		t.Fatalf("upsert error: %v", err)
	}

	// the account transactions endpoint queries by account with a page size
	accountID := "acc-1"
	got := queryIDs(t, s, uid, dto.TransactionQuery{AccountID: &accountID, Limit: 2})
	if fmt.Sprint(got) != "[t3 t2]" {
		t.Fatalf("expected newest two acc-1 transactions, got %v", got)
	}

	other := "acc-2"
	got = queryIDs(t, s, uid, dto.TransactionQuery{AccountID: &other})
	if fmt.Sprint(got) != "[t4]" {
		t.Fatalf("expected only acc-2 transactions, got %v", got)
	}

	bankID := "b1"
	from, to := "2025-01-10", "2025-01-31"
	got = queryIDs(t, s, uid, dto.TransactionQuery{BankID: &bankID, DateFrom: &from, DateTo: &to})
	if fmt.Sprint(got) != "[t3 t2]" {
		t.Fatalf("expected b1 transactions inside the date range, got %v", got)
	}
}

func TestTransactionQueryLimitClampWithEmulator(t *testing.T) {
	client := emulatorClient(t)
	ctx := context.Background()
	s := NewTransactionStore(client)
	uid := "tx-" + uuid.NewString()

	txs := make([]models.Transaction, 0, maxTransactionPage+1)
	for i := 0; i <= maxTransactionPage; i++ {
		txs = append(txs, cardTx(fmt.Sprintf("t%04d", i), "b1", "acc-1", fmt.Sprintf("2024-%02d-%02d", i%12+1, i%28+1), 1))
	}
	if err := s.UpsertBatch(ctx, uid, txs); err != nil {
		t.Fatalf("upsert error: %v", err)
	}

	for _, limit := range []int{0, -1, 5000} {
		got := queryIDs(t, s, uid, dto.TransactionQuery{Limit: limit})
		if len(got) != maxTransactionPage {
			t.Fatalf("limit %d returned %d transactions, want %d", limit, len(got), maxTransactionPage)
		}
	}
}

func TestTransactionDeletesWithEmulator(t *testing.T) {
	client := emulatorClient(t)
	ctx := context.Background()
	s := NewTransactionStore(client)
	uid := "tx-" + uuid.NewString()

	err := s.UpsertBatch(ctx, uid, []models.Transaction{
		cardTx("t1", "b1", "acc-1", "2025-01-05", 20),
		cardTx("t2", "b1", "acc-1", "2025-01-06", 20),
		cardTx("t3", "b2", "acc-2", "2025-01-07", 20),
	})
	if err != nil {
		t.Fatalf("upsert error: %v", err)
	}

	// removed ids the store never saw are tolerated
	if err := s.DeleteBatch(ctx, uid, []string{"t1", "never-synced"}); err != nil {
		t.Fatalf("delete batch error: %v", err)
	}
	if got := queryIDs(t, s, uid, dto.TransactionQuery{}); fmt.Sprint(got) != "[t3 t2]" {
		t.Fatalf("after delete batch got %v", got)
	}

	if err := s.DeleteByBank(ctx, uid, "b2"); err != nil {
		t.Fatalf("delete by bank error: %v", err)
	}
	if got := queryIDs(t, s, uid, dto.TransactionQuery{}); fmt.Sprint(got) != "[t2]" {
		t.Fatalf("after delete by bank got %v", got)
	}
}

func TestTransactionCursorWithEmulator(t *testing.T) {
	client := emulatorClient(t)
	ctx := context.Background()
	s := NewTransactionStore(client)
	uid := "tx-" + uuid.NewString()

	cursor, err := s.GetCursor(ctx, uid, "b1")
	if err != nil || cursor != "" {
		t.Fatalf("expected empty cursor for a new bank, got %q err=%v", cursor, err)
	}

	for _, want := range []string{"cursor-1", "cursor-2"} {
		if err := s.SetCursor(ctx, uid, "b1", want); err != nil {
			t.Fatalf("set cursor error: %v", err)
		}
		got, err := s.GetCursor(ctx, uid, "b1")
		if err != nil || got != want {
			t.Fatalf("cursor = %q err=%v, want %q", got, err, want)
		}
	}

	if err := s.DeleteCursor(ctx, uid, "b1"); err != nil {
		t.Fatalf("delete cursor error: %v", err)
	}
	cursor, err = s.GetCursor(ctx, uid, "b1")
	if err != nil || cursor != "" {
		t.Fatalf("expected cursor cleared, got %q err=%v", cursor, err)
	}
}
