package plaidclient

import (
	"context"
	"time"

	"github.com/plaid/plaid-go/v24/plaid"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
)

const clientName = "Utilization Pilot"

type Adapter struct {
	client     *plaid.APIClient
	webhookURL string
}

func NewAdapter(clientID, secret string, env dto.PlaidEnvironment, webhookURL string) *Adapter {
	cfg := plaid.NewConfiguration()
	cfg.AddDefaultHeader("PLAID-CLIENT-ID", clientID)
	cfg.AddDefaultHeader("PLAID-SECRET", secret)
	cfg.UseEnvironment(toPlaidEnv(env))

	return &Adapter{
		client:     plaid.NewAPIClient(cfg),
		webhookURL: webhookURL,
	}
}

func (a *Adapter) CreateLinkToken(ctx context.Context, uid string) (string, error) {
	req := plaid.NewLinkTokenCreateRequest(
		clientName,
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_US},
		plaid.LinkTokenCreateRequestUser{ClientUserId: uid},
	)
	req.SetProducts([]plaid.Products{plaid.PRODUCTS_LIABILITIES, plaid.PRODUCTS_TRANSACTIONS})
	if a.webhookURL != "" {
		req.SetWebhook(a.webhookURL)
	}

	resp, _, err := a.client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*req).Execute()
	if err != nil {
		return "", wrapPlaidError("failed to create link token", err)
	}
	return resp.GetLinkToken(), nil
}

func (a *Adapter) ExchangePublicToken(ctx context.Context, publicToken string) (itemID, accessToken string, err error) {
	req := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, _, err := a.client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*req).Execute()
	if err != nil {
		return "", "", wrapPlaidError("failed to exchange public token", err)
	}
	return resp.GetItemId(), resp.GetAccessToken(), nil
}

// GetBalances fetches real-time balances for every account on the item.
func (a *Adapter) GetBalances(ctx context.Context, accessToken string) ([]dto.PlaidAccount, error) {
	req := plaid.NewAccountsBalanceGetRequest(accessToken)
	resp, _, err := a.client.PlaidApi.AccountsBalanceGet(ctx).AccountsBalanceGetRequest(*req).Execute()
	if err != nil {
		return nil, wrapPlaidError("failed to fetch balances", err)
	}

	accounts := make([]dto.PlaidAccount, 0, len(resp.GetAccounts()))
	for _, acct := range resp.GetAccounts() {
		balances := acct.GetBalances()
		out := dto.PlaidAccount{
			AccountID: acct.GetAccountId(),
			Name:      acct.GetName(),
			Mask:      acct.GetMask(),
			Type:      string(acct.GetType()),
			Subtype:   string(acct.GetSubtype()),
			Current:   balances.GetCurrent(),
			Currency:  balances.GetIsoCurrencyCode(),
		}
		if name, ok := acct.GetOfficialNameOk(); ok && name != nil && *name != "" {
			out.OfficialName = name
		}
		if avail, ok := balances.GetAvailableOk(); ok && avail != nil {
			out.Available = avail
		}
		if limit, ok := balances.GetLimitOk(); ok && limit != nil {
			out.Limit = limit
		}
		accounts = append(accounts, out)
	}
	return accounts, nil
}

// GetCreditLiabilities returns statement data for the item's credit cards.
func (a *Adapter) GetCreditLiabilities(ctx context.Context, accessToken string) ([]dto.PlaidCreditLiability, error) {
	req := plaid.NewLiabilitiesGetRequest(accessToken)
	resp, _, err := a.client.PlaidApi.LiabilitiesGet(ctx).LiabilitiesGetRequest(*req).Execute()
	if err != nil {
		return nil, wrapPlaidError("failed to fetch liabilities", err)
	}

	liabilities := resp.GetLiabilities()
	credit := liabilities.GetCredit()
	out := make([]dto.PlaidCreditLiability, 0, len(credit))
	for _, c := range credit {
		item := dto.PlaidCreditLiability{
			AccountID:              c.GetAccountId(),
			LastStatementIssueDate: c.GetLastStatementIssueDate(),
			NextPaymentDueDate:     c.GetNextPaymentDueDate(),
		}
		if bal, ok := c.GetLastStatementBalanceOk(); ok && bal != nil {
			item.LastStatementBalance = bal
		}
		if minPay, ok := c.GetMinimumPaymentAmountOk(); ok && minPay != nil {
			item.MinimumPaymentAmount = minPay
		}
		out = append(out, item)
	}
	return out, nil
}

func (a *Adapter) SyncTransactions(ctx context.Context, bankID string, accessToken string, cursor *string) (dto.PlaidSyncPage, error) {
	req := plaid.NewTransactionsSyncRequest(accessToken)
	if cursor != nil {
		req.SetCursor(*cursor)
	}
	req.SetCount(500)
	opts := plaid.NewTransactionsSyncRequestOptions()
	opts.SetIncludePersonalFinanceCategory(true)
	req.SetOptions(*opts)

	var page dto.PlaidSyncPage

	resp, _, err := a.client.PlaidApi.TransactionsSync(ctx).TransactionsSyncRequest(*req).Execute()
	if err != nil {
		return page, wrapPlaidError("failed to sync transactions", err)
	}

	txs := make([]models.Transaction, 0, len(resp.GetAdded())+len(resp.GetModified()))
	now := time.Now()

	convert := func(plaidTx plaid.Transaction) models.Transaction {
		pfc := plaidTx.GetPersonalFinanceCategory()
		return models.Transaction{
			TransactionID:  plaidTx.GetTransactionId(),
			BankID:         bankID,
			AccountID:      plaidTx.GetAccountId(),
			Name:           plaidTx.GetName(),
			Amount:         plaidTx.GetAmount(),
			Currency:       plaidTx.GetIsoCurrencyCode(),
			Pending:        plaidTx.GetPending(),
			Date:           plaidTx.GetDate(),
			AuthorizedDate: plaidTx.GetAuthorizedDate(),
			PFCPrimary:     pfc.GetPrimary(),
			PFCDetailed:    pfc.GetDetailed(),
			MerchantName:   plaidTx.GetMerchantName(),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	for _, t := range resp.GetAdded() {
		txs = append(txs, convert(t))
	}
	for _, t := range resp.GetModified() {
		txs = append(txs, convert(t))
	}
	for _, r := range resp.GetRemoved() {
		page.Removed = append(page.Removed, r.GetTransactionId())
	}

	page.Transactions = txs
	page.Cursor = resp.GetNextCursor()
	page.HasMore = resp.GetHasMore()

	return page, nil
}

// RemoveItem revokes the access token at Plaid.
func (a *Adapter) RemoveItem(ctx context.Context, accessToken string) error {
	req := plaid.NewItemRemoveRequest(accessToken)
	if _, _, err := a.client.PlaidApi.ItemRemove(ctx).ItemRemoveRequest(*req).Execute(); err != nil {
		return wrapPlaidError("failed to remove item", err)
	}
	return nil
}

// GetWebhookVerificationKey fetches the JWK Plaid signed a webhook with.
func (a *Adapter) GetWebhookVerificationKey(ctx context.Context, keyID string) (dto.PlaidVerificationKey, error) {
	req := plaid.NewWebhookVerificationKeyGetRequest(keyID)
	resp, _, err := a.client.PlaidApi.WebhookVerificationKeyGet(ctx).WebhookVerificationKeyGetRequest(*req).Execute()
	if err != nil {
		return dto.PlaidVerificationKey{}, wrapPlaidError("failed to fetch webhook verification key", err)
	}

	key := resp.GetKey()
	out := dto.PlaidVerificationKey{
		KeyID: key.GetKid(),
		Alg:   key.GetAlg(),
		Curve: key.GetCrv(),
		X:     key.GetX(),
		Y:     key.GetY(),
	}
	if expired, ok := key.GetExpiredAtOk(); ok && expired != nil {
		v := int64(*expired)
		out.ExpiredAt = &v
	}
	return out, nil
}

func toPlaidEnv(env dto.PlaidEnvironment) plaid.Environment {
	switch env {
	case dto.PlaidSandbox:
		return plaid.Sandbox
	case dto.PlaidDevelopment:
		return plaid.Development
	default: // dto.PlaidProduction:
		return plaid.Production
	}
}
