package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	plaidclient "github.com/GregMSThompson/utilization-pilot/internal/client/plaid"
	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
	"github.com/GregMSThompson/utilization-pilot/pkg/helpers"
	"github.com/GregMSThompson/utilization-pilot/pkg/logger"
)

// maxConcurrentBanks bounds provider calls made for one user at a time.
const maxConcurrentBanks = 4

// --- Dependencies (minimal interfaces scoped to this service) ---

type bankPSStore interface {
	Create(ctx context.Context, uid string, bank *models.Bank) error
	List(ctx context.Context, uid string) ([]*models.Bank, error)
	MarkSynced(ctx context.Context, uid, bankID, status string, at time.Time) error
}

type accountPSStore interface {
	UpsertFromProvider(ctx context.Context, uid string, accounts []models.Account) error
}

type transactionPSStore interface {
	UpsertBatch(ctx context.Context, uid string, txs []models.Transaction) error
	DeleteBatch(ctx context.Context, uid string, ids []string) error
	GetCursor(ctx context.Context, uid, bankID string) (string, error)
	SetCursor(ctx context.Context, uid, bankID, cursor string) error
}

type itemPSStore interface {
	SaveItem(ctx context.Context, itemID, uid string) error
	GetOwner(ctx context.Context, itemID string) (string, error)
}

// tokenVault holds Plaid access tokens (KMS envelope in Firestore or Secret Manager).
type tokenVault interface {
	StorePlaidToken(ctx context.Context, uid, itemID, token string) error
	GetPlaidToken(ctx context.Context, uid, itemID string) (string, error)
}

// plaidClient is the Plaid SDK adapter surface used by this service.
type plaidClient interface {
	CreateLinkToken(ctx context.Context, uid string) (linkToken string, err error)
	ExchangePublicToken(ctx context.Context, publicToken string) (itemID string, accessToken string, err error)
	GetBalances(ctx context.Context, accessToken string) ([]dto.PlaidAccount, error)
	GetCreditLiabilities(ctx context.Context, accessToken string) ([]dto.PlaidCreditLiability, error)
	SyncTransactions(ctx context.Context, bankID string, accessToken string, cursor *string) (dto.PlaidSyncPage, error)
}

type webhookVerifier interface {
	Verify(ctx context.Context, body []byte, signedJWT string) error
}

type plaidService struct {
	plaid    plaidClient
	banks    bankPSStore
	accounts accountPSStore
	txs      transactionPSStore
	items    itemPSStore
	tokens   tokenVault
	verifier webhookVerifier
	clockNow func() time.Time
}

func NewPlaidService(plaid plaidClient, banks bankPSStore, accounts accountPSStore, txs transactionPSStore, items itemPSStore, tokens tokenVault) *plaidService {
	return &plaidService{
		plaid:    plaid,
		banks:    banks,
		accounts: accounts,
		txs:      txs,
		items:    items,
		tokens:   tokens,
		clockNow: time.Now,
	}
}

// WithWebhookVerifier enables signature checks on incoming webhooks.
func (s *plaidService) WithWebhookVerifier(v webhookVerifier) *plaidService {
	s.verifier = v
	return s
}

func (s *plaidService) CreateLinkToken(ctx context.Context, uid string) (string, error) {
	linkToken, err := s.plaid.CreateLinkToken(ctx, uid)
	if err != nil {
		return "", err
	}
	return linkToken, nil
}

// ExchangePublicToken links a bank and refreshes its accounts right away.
// A failed first refresh is logged; the bank stays linked and the next sync retries.
func (s *plaidService) ExchangePublicToken(ctx context.Context, uid string, req dto.ExchangeTokenRequest) (dto.ExchangeTokenResponse, error) {
	log := logger.FromContext(ctx)
	institution := req.Metadata.Institution

	itemID, accessToken, err := s.plaid.ExchangePublicToken(ctx, req.PublicToken)
	if err != nil {
		return dto.ExchangeTokenResponse{}, err
	}

	if err := s.tokens.StorePlaidToken(ctx, uid, itemID, accessToken); err != nil {
		return dto.ExchangeTokenResponse{}, err
	}

	now := s.clockNow()
	bank := &models.Bank{
		BankID:        itemID,
		Institution:   institution.Name,
		InstitutionID: institution.InstitutionID,
		Status:        models.BankStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.banks.Create(ctx, uid, bank); err != nil {
		return dto.ExchangeTokenResponse{}, err
	}
	if err := s.items.SaveItem(ctx, itemID, uid); err != nil {
		return dto.ExchangeTokenResponse{}, err
	}

	log.Info("bank linked", "bank_id", itemID, "institution", institution.Name)

	resp := dto.ExchangeTokenResponse{BankID: itemID}
	synced, err := s.syncBank(ctx, uid, bank)
	if err != nil {
		log.Warn("initial account sync failed", "bank_id", itemID, "error", err)
		return resp, nil
	}
	resp.AccountsSynced = synced
	return resp, nil
}

// SyncAccounts refreshes balances and statement data for every bank, or only bankID when set.
// Per-bank failures are reported in FailedBanks; a failure of the only requested bank is returned.
func (s *plaidService) SyncAccounts(ctx context.Context, uid string, bankID *string) (dto.AccountSyncResult, error) {
	log := logger.FromContext(ctx)
	result := dto.AccountSyncResult{}

	banks, err := s.banks.List(ctx, uid)
	if err != nil {
		return result, err
	}

	selected := make([]*models.Bank, 0, len(banks))
	for _, b := range banks {
		if bankID == nil || *bankID == b.BankID {
			selected = append(selected, b)
		}
	}
	if bankID != nil && len(selected) == 0 {
		return result, errs.NewNotFoundError("bank not found")
	}

	log.Info("account sync started", "bank_count", len(selected))

	var (
		mu      sync.Mutex
		lastErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBanks)
	for _, b := range selected {
		g.Go(func() error {
			n, err := s.syncBank(gctx, uid, b)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("bank account sync failed", "bank_id", b.BankID, "error", err)
				result.FailedBanks = append(result.FailedBanks, b.BankID)
				lastErr = err
				return nil
			}
			result.BanksSynced++
			result.AccountsSynced += n
			return nil
		})
	}
	_ = g.Wait()

	if bankID != nil && lastErr != nil {
		return result, lastErr
	}

	log.Info("account sync completed", "banks_synced", result.BanksSynced, "accounts_synced", result.AccountsSynced, "failed", len(result.FailedBanks))
	return result, nil
}

func (s *plaidService) syncBank(ctx context.Context, uid string, b *models.Bank) (int, error) {
	log := logger.FromContext(ctx).With("bank_id", b.BankID)

	token, err := s.tokens.GetPlaidToken(ctx, uid, b.BankID)
	if err != nil {
		return 0, err
	}

	balances, err := s.plaid.GetBalances(ctx, token)
	if err != nil {
		s.markFailed(ctx, uid, b.BankID, err)
		return 0, err
	}

	liabilities, err := s.plaid.GetCreditLiabilities(ctx, token)
	if err != nil {
		// statement dates fall back to the close day heuristic
		if plaidclient.IsProductNotSupported(err) {
			log.Debug("liabilities not supported by institution")
		} else {
			log.Warn("liabilities fetch failed", "error", err)
		}
		liabilities = nil
	}

	now := s.clockNow()
	accounts := mergeAccounts(b.BankID, balances, liabilities, now)
	if err := s.accounts.UpsertFromProvider(ctx, uid, accounts); err != nil {
		return 0, err
	}
	if err := s.banks.MarkSynced(ctx, uid, b.BankID, models.BankStatusActive, now); err != nil {
		return 0, err
	}
	return len(accounts), nil
}

func (s *plaidService) markFailed(ctx context.Context, uid, bankID string, cause error) {
	status := models.BankStatusError
	if plaidclient.NeedsRelink(cause) {
		status = models.BankStatusLoginRequired
	}
	if err := s.banks.MarkSynced(ctx, uid, bankID, status, s.clockNow()); err != nil {
		logger.FromContext(ctx).Warn("failed to record bank status", "bank_id", bankID, "status", status, "error", err)
	}
}

// mergeAccounts joins balances with liabilities on account id.
func mergeAccounts(bankID string, balances []dto.PlaidAccount, liabilities []dto.PlaidCreditLiability, now time.Time) []models.Account {
	byAccount := make(map[string]dto.PlaidCreditLiability, len(liabilities))
	for _, l := range liabilities {
		byAccount[l.AccountID] = l
	}

	out := make([]models.Account, 0, len(balances))
	for _, b := range balances {
		acct := models.Account{
			AccountID:        b.AccountID,
			BankID:           bankID,
			Name:             b.Name,
			OfficialName:     b.OfficialName,
			Mask:             b.Mask,
			Type:             b.Type,
			Subtype:          b.Subtype,
			CurrentBalance:   b.Current,
			AvailableBalance: b.Available,
			CreditLimit:      b.Limit,
			Currency:         b.Currency,
			UpdatedAt:        now,
		}
		if l, ok := byAccount[b.AccountID]; ok {
			// unparsable provider dates are treated as absent
			acct.LastStatementDate, _ = helpers.ParseDate(l.LastStatementIssueDate)
			acct.NextPaymentDueDate, _ = helpers.ParseDate(l.NextPaymentDueDate)
			acct.LastStatementBalance = l.LastStatementBalance
			acct.MinimumPayment = l.MinimumPaymentAmount
		}
		out = append(out, acct)
	}
	return out
}

func (s *plaidService) SyncTransactions(ctx context.Context, uid string, bankID *string) (dto.PlaidServiceSyncResult, error) {
	result := dto.PlaidServiceSyncResult{}
	log := logger.FromContext(ctx)

	banks, err := s.banks.List(ctx, uid)
	if err != nil {
		return result, err
	}

	banksToSync := len(banks)
	if bankID != nil {
		banksToSync = 1
	}
	log.Info("transaction sync started", "bank_count", banksToSync)

	for _, b := range banks {
		if bankID != nil && *bankID != b.BankID {
			continue
		}

		token, err := s.tokens.GetPlaidToken(ctx, uid, b.BankID)
		if err != nil {
			return result, err
		}

		storedCursor, err := s.txs.GetCursor(ctx, uid, b.BankID)
		if err != nil {
			return result, err
		}
		var cursor *string
		if storedCursor != "" {
			cursor = &storedCursor
		}

		latestCursor := storedCursor
		hasMore := true
		for hasMore {
			page, err := s.plaid.SyncTransactions(ctx, b.BankID, token, cursor)
			if err != nil {
				log.Warn("bank sync failed", "bank_id", b.BankID)
				return result, err
			}

			if len(page.Transactions) > 0 {
				if err := s.txs.UpsertBatch(ctx, uid, page.Transactions); err != nil {
					return result, err
				}
				result.TransactionsInserted += len(page.Transactions)
			}
			if len(page.Removed) > 0 {
				if err := s.txs.DeleteBatch(ctx, uid, page.Removed); err != nil {
					return result, err
				}
			}

			latestCursor = page.Cursor
			cursor = &latestCursor
			hasMore = page.HasMore
		}

		if latestCursor != "" {
			if err := s.txs.SetCursor(ctx, uid, b.BankID, latestCursor); err != nil {
				return result, err
			}
		}

		result.BanksSynced++
		if bankID != nil {
			result.Cursor = helpers.Value(cursor)
			break
		}
	}

	log.Info("transaction sync completed", "banks_synced", result.BanksSynced, "transactions_inserted", result.TransactionsInserted)
	return result, nil
}
