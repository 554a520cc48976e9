package services

import (
	"errors"
	"reflect"
	"testing"

	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
)

type bankFixture struct {
	banks    *fakeBankStore
	txs      *fakeTxStore
	accounts *fakeAccountStore
	items    *fakeItemStore
	vault    *fakeVault
	plaid    *fakePlaid
	svc      *bankService
}

func newBankFixture(banks ...*models.Bank) *bankFixture {
	f := &bankFixture{
		banks:    &fakeBankStore{list: banks},
		txs:      &fakeTxStore{},
		accounts: newFakeAccountStore(),
		items:    &fakeItemStore{},
		vault:    &fakeVault{tokens: map[string]string{}},
		plaid:    &fakePlaid{},
	}
	f.svc = NewBankService(f.banks, f.txs, f.accounts, f.items, f.vault, f.plaid)
	return f
}

func TestBankServiceListBanks(t *testing.T) {
	expected := []*models.Bank{{BankID: "b1"}, {BankID: "b2"}}
	f := newBankFixture(expected...)

	got, err := f.svc.ListBanks(testCtx(), "uid-1")
	if err != nil {
		t.Fatalf("ListBanks returned error: %v", err)
	}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("ListBanks = %#v, want %#v", got, expected)
	}
}

func TestBankServiceDeleteBankSuccess(t *testing.T) {
	f := newBankFixture(&models.Bank{BankID: "bank-1"})
	f.vault.tokens["bank-1"] = "at-1"

	if err := f.svc.DeleteBank(testCtx(), "uid-1", "bank-1"); err != nil {
		t.Fatalf("DeleteBank returned error: %v", err)
	}
	if len(f.plaid.removed) != 1 || f.plaid.removed[0] != "at-1" {
		t.Fatalf("expected item removed at plaid, got %#v", f.plaid.removed)
	}
	if !reflect.DeepEqual(f.txs.calls, []string{"txs:bank-1", "cursor:bank-1"}) {
		t.Fatalf("unexpected tx call order: %#v", f.txs.calls)
	}
	if len(f.accounts.deleted) != 1 || len(f.vault.deleted) != 1 || len(f.items.deleted) != 1 {
		t.Fatalf("expected accounts, token and item cleanup: %v %v %v", f.accounts.deleted, f.vault.deleted, f.items.deleted)
	}
	if len(f.banks.deleted) != 1 || f.banks.deleted[0] != "uid-1:bank-1" {
		t.Fatalf("unexpected bank delete calls: %#v", f.banks.deleted)
	}
}

func TestBankServiceDeleteBankContinuesWhenPlaidRemoveFails(t *testing.T) {
	f := newBankFixture(&models.Bank{BankID: "bank-1"})
	f.vault.tokens["bank-1"] = "at-1"
	f.plaid.removeErr = errors.New("plaid down")

	if err := f.svc.DeleteBank(testCtx(), "uid-1", "bank-1"); err != nil {
		t.Fatalf("DeleteBank returned error: %v", err)
	}
	if len(f.banks.deleted) != 1 {
		t.Fatalf("expected bank deleted, got %#v", f.banks.deleted)
	}
}

func TestBankServiceDeleteBankUnknownBank(t *testing.T) {
	f := newBankFixture()

	err := f.svc.DeleteBank(testCtx(), "uid-1", "bank-1")
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if len(f.txs.calls) != 0 || len(f.banks.deleted) != 0 {
		t.Fatal("nothing should be deleted for an unknown bank")
	}
}

func TestBankServiceDeleteBankStopsOnBankDeleteError(t *testing.T) {
	expectedErr := errors.New("delete failed")
	f := newBankFixture(&models.Bank{BankID: "bank-1"})
	f.banks.deleteErr = expectedErr

	if err := f.svc.DeleteBank(testCtx(), "uid-1", "bank-1"); err != expectedErr {
		t.Fatalf("DeleteBank error = %v, want %v", err, expectedErr)
	}
}
