package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
	"github.com/GregMSThompson/utilization-pilot/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(logger.NewTestHandler(slog.LevelInfo))
}

func testCtx() context.Context {
	return logger.ToContext(context.Background(), testLogger())
}

// --- plaid ---

type fakePlaid struct {
	linkToken      string
	itemID         string
	accessToken    string
	balances       map[string][]dto.PlaidAccount // by access token
	liabilities    map[string][]dto.PlaidCreditLiability
	syncPages      []dto.PlaidSyncPage
	createLinkErr  error
	exchangeErr    error
	balanceErr     map[string]error
	liabilityErr   error
	syncErr        error
	removeErr      error
	syncCalls      int
	exchangeCalled bool
	removed        []string
}

func (f *fakePlaid) CreateLinkToken(ctx context.Context, uid string) (string, error) {
	return f.linkToken, f.createLinkErr
}

func (f *fakePlaid) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	f.exchangeCalled = true
	return f.itemID, f.accessToken, f.exchangeErr
}

func (f *fakePlaid) GetBalances(ctx context.Context, accessToken string) ([]dto.PlaidAccount, error) {
	if err := f.balanceErr[accessToken]; err != nil {
		return nil, err
	}
	return f.balances[accessToken], nil
}

func (f *fakePlaid) GetCreditLiabilities(ctx context.Context, accessToken string) ([]dto.PlaidCreditLiability, error) {
	if f.liabilityErr != nil {
		return nil, f.liabilityErr
	}
	return f.liabilities[accessToken], nil
}

func (f *fakePlaid) SyncTransactions(ctx context.Context, bankID string, accessToken string, cursor *string) (dto.PlaidSyncPage, error) {
	if f.syncErr != nil {
		return dto.PlaidSyncPage{}, f.syncErr
	}
	if f.syncCalls >= len(f.syncPages) {
		return dto.PlaidSyncPage{}, nil
	}
	page := f.syncPages[f.syncCalls]
	f.syncCalls++
	return page, nil
}

func (f *fakePlaid) RemoveItem(ctx context.Context, accessToken string) error {
	f.removed = append(f.removed, accessToken)
	return f.removeErr
}

// --- stores ---

type fakeBankStore struct {
	mu        sync.Mutex
	created   []*models.Bank
	list      []*models.Bank
	statuses  map[string]string
	err       error
	markErr   error
	deleted   []string
	deleteErr error
}

func (f *fakeBankStore) Create(ctx context.Context, uid string, bank *models.Bank) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, bank)
	return nil
}

func (f *fakeBankStore) List(ctx context.Context, uid string) ([]*models.Bank, error) {
	return f.list, f.err
}

func (f *fakeBankStore) Get(ctx context.Context, uid, bankID string) (*models.Bank, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, b := range f.list {
		if b.BankID == bankID {
			return b, nil
		}
	}
	return nil, errs.NewNotFoundError("bank not found")
}

func (f *fakeBankStore) MarkSynced(ctx context.Context, uid, bankID, status string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses == nil {
		f.statuses = map[string]string{}
	}
	f.statuses[bankID] = status
	return f.markErr
}

func (f *fakeBankStore) Delete(ctx context.Context, uid, bankID string) error {
	f.deleted = append(f.deleted, uid+":"+bankID)
	return f.deleteErr
}

type fakeAccountStore struct {
	mu        sync.Mutex
	accounts  map[string]*models.Account
	upserted  []models.Account
	upsertErr error
	listErr   error
	updateErr error
	deleted   []string
}

func newFakeAccountStore(accounts ...*models.Account) *fakeAccountStore {
	f := &fakeAccountStore{accounts: map[string]*models.Account{}}
	for _, a := range accounts {
		f.accounts[a.AccountID] = a
	}
	return f
}

func (f *fakeAccountStore) UpsertFromProvider(ctx context.Context, uid string, accounts []models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, accounts...)
	return nil
}

func (f *fakeAccountStore) List(ctx context.Context, uid string) ([]*models.Account, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.Account, 0, len(f.accounts))
	for _, a := range f.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAccountStore) Get(ctx context.Context, uid, accountID string) (*models.Account, error) {
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, errs.NewNotFoundError("account not found")
	}
	return a, nil
}

func (f *fakeAccountStore) UpdateTargets(ctx context.Context, uid, accountID string, target *float64, paydownLimit *float64) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	a, ok := f.accounts[accountID]
	if !ok {
		return errs.NewNotFoundError("account not found")
	}
	if target != nil {
		a.TargetUtilization = *target
	}
	if paydownLimit != nil {
		a.MonthlyPaydownLimit = paydownLimit
	}
	return nil
}

func (f *fakeAccountStore) DeleteByBank(ctx context.Context, uid, bankID string) error {
	f.deleted = append(f.deleted, bankID)
	return nil
}

type fakeTxStore struct {
	cursor    string
	upserted  [][]models.Transaction
	removed   []string
	setCursor string
	stored    []models.Transaction
	lastQuery dto.TransactionQuery
	getErr    error
	upsertErr error
	setCurErr error
	calls     []string
}

func (f *fakeTxStore) UpsertBatch(ctx context.Context, uid string, txs []models.Transaction) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, txs)
	return nil
}

func (f *fakeTxStore) DeleteBatch(ctx context.Context, uid string, ids []string) error {
	f.removed = append(f.removed, ids...)
	return nil
}

func (f *fakeTxStore) GetCursor(ctx context.Context, uid, bankID string) (string, error) {
	return f.cursor, f.getErr
}

func (f *fakeTxStore) SetCursor(ctx context.Context, uid, bankID, cursor string) error {
	if f.setCurErr != nil {
		return f.setCurErr
	}
	f.setCursor = cursor
	return nil
}

func (f *fakeTxStore) DeleteByBank(ctx context.Context, uid, bankID string) error {
	f.calls = append(f.calls, "txs:"+bankID)
	return nil
}

func (f *fakeTxStore) DeleteCursor(ctx context.Context, uid, bankID string) error {
	f.calls = append(f.calls, "cursor:"+bankID)
	return nil
}

func (f *fakeTxStore) Query(ctx context.Context, uid string, q dto.TransactionQuery, fn func(*models.Transaction) error) error {
	f.lastQuery = q
	for i := range f.stored {
		if err := fn(&f.stored[i]); err != nil {
			return err
		}
	}
	return nil
}

type fakeItemStore struct {
	owners  map[string]string
	saveErr error
	deleted []string
}

func (f *fakeItemStore) SaveItem(ctx context.Context, itemID, uid string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.owners == nil {
		f.owners = map[string]string{}
	}
	f.owners[itemID] = uid
	return nil
}

func (f *fakeItemStore) GetOwner(ctx context.Context, itemID string) (string, error) {
	uid, ok := f.owners[itemID]
	if !ok {
		return "", errs.NewNotFoundError("unknown item")
	}
	return uid, nil
}

func (f *fakeItemStore) DeleteItem(ctx context.Context, itemID string) error {
	f.deleted = append(f.deleted, itemID)
	return nil
}

type fakeVault struct {
	mu       sync.Mutex
	tokens   map[string]string // itemID -> token
	storeErr error
	deleted  []string
}

func (f *fakeVault) StorePlaidToken(ctx context.Context, uid, itemID, token string) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokens == nil {
		f.tokens = map[string]string{}
	}
	f.tokens[itemID] = token
	return nil
}

func (f *fakeVault) GetPlaidToken(ctx context.Context, uid, itemID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[itemID]
	if !ok {
		return "", errs.NewNotFoundError("plaid token not found")
	}
	return token, nil
}

func (f *fakeVault) DeletePlaidToken(ctx context.Context, uid, itemID string) error {
	f.deleted = append(f.deleted, itemID)
	return nil
}

type fakeSettingsStore struct {
	settings  models.UserSettings
	getErr    error
	updateErr error
}

func (f *fakeSettingsStore) GetSettings(ctx context.Context, uid string) (models.UserSettings, error) {
	return f.settings, f.getErr
}

func (f *fakeSettingsStore) UpdateSettings(ctx context.Context, uid string, upd dto.SettingsUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if upd.TargetUtilization != nil {
		f.settings.TargetUtilization = *upd.TargetUtilization
	}
	if upd.MonthlyPaydownLimit != nil {
		f.settings.MonthlyPaydownLimit = upd.MonthlyPaydownLimit
	}
	if upd.RemindersEnabled != nil {
		f.settings.RemindersEnabled = *upd.RemindersEnabled
	}
	return nil
}

type fakeHistoryStore struct {
	recorded []models.UtilizationSnapshot
	err      error
	limit    int
}

func (f *fakeHistoryStore) Record(ctx context.Context, snap models.UtilizationSnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, snap)
	return nil
}

func (f *fakeHistoryStore) List(ctx context.Context, uid string, limit int) ([]models.UtilizationSnapshot, error) {
	f.limit = limit
	return f.recorded, f.err
}
