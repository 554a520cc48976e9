package dto

import (
	"github.com/GregMSThompson/utilization-pilot/internal/models"
)

// Metadata from the transaction sync process
type PlaidServiceSyncResult struct {
	BanksSynced          int    `json:"banksSynced"`
	TransactionsInserted int    `json:"transactionsInserted"`
	Cursor               string `json:"cursor,omitempty"` // latest cursor if syncing one bank; empty when multiple
}

// AccountSyncResult summarises a balance refresh across banks.
type AccountSyncResult struct {
	BanksSynced    int      `json:"banksSynced"`
	AccountsSynced int      `json:"accountsSynced"`
	FailedBanks    []string `json:"failedBanks,omitempty"`
}

// Plaid adapter result - represents one page from /transactions/sync
type PlaidSyncPage struct {
	Transactions []models.Transaction
	Removed      []string
	Cursor       string
	HasMore      bool
}

// PlaidAccount is one account from /accounts/balance/get.
type PlaidAccount struct {
	AccountID    string
	Name         string
	OfficialName *string
	Mask         string
	Type         string
	Subtype      string
	Current      float64
	Available    *float64
	Limit        *float64
	Currency     string
}

// PlaidCreditLiability is the statement data of one card from /liabilities/get.
type PlaidCreditLiability struct {
	AccountID              string
	LastStatementIssueDate string // YYYY-MM-DD
	LastStatementBalance   *float64
	MinimumPaymentAmount   *float64
	NextPaymentDueDate     string
}

// PlaidVerificationKey is the JWK used to verify webhook signatures.
type PlaidVerificationKey struct {
	KeyID     string
	Alg       string
	Curve     string
	X         string
	Y         string
	ExpiredAt *int64
}

type PlaidWebhook struct {
	WebhookType string `json:"webhook_type"`
	WebhookCode string `json:"webhook_code"`
	ItemID      string `json:"item_id"`
	Error       *struct {
		ErrorCode    string `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"error,omitempty"`
}

type ExchangeTokenRequest struct {
	PublicToken string `json:"public_token"`
	Metadata    struct {
		Institution struct {
			Name          string `json:"name"`
			InstitutionID string `json:"institution_id"`
		} `json:"institution"`
	} `json:"metadata"`
}

type ExchangeTokenResponse struct {
	BankID         string `json:"bankId"`
	AccountsSynced int    `json:"accountsSynced"`
}

type PlaidEnvironment string

const (
	PlaidSandbox     PlaidEnvironment = "sandbox"
	PlaidDevelopment PlaidEnvironment = "development"
	PlaidProduction  PlaidEnvironment = "production"
)
