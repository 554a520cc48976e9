package models

import "time"

// Account is a provider account as persisted after a balance refresh.
// TargetUtilization and MonthlyPaydownLimit are user settings and survive refreshes.
type Account struct {
	AccountID        string   `firestore:"accountId" json:"accountId"`
	BankID           string   `firestore:"bankId" json:"bankId"`
	Name             string   `firestore:"name" json:"name"`
	OfficialName     *string  `firestore:"officialName,omitempty" json:"officialName,omitempty"`
	Mask             string   `firestore:"mask,omitempty" json:"mask,omitempty"`
	Type             string   `firestore:"type" json:"type"`
	Subtype          string   `firestore:"subtype" json:"subtype"`
	CurrentBalance   float64  `firestore:"currentBalance" json:"currentBalance"`
	AvailableBalance *float64 `firestore:"availableBalance,omitempty" json:"availableBalance,omitempty"`
	CreditLimit      *float64 `firestore:"creditLimit,omitempty" json:"creditLimit,omitempty"`
	Currency         string   `firestore:"currency,omitempty" json:"currency,omitempty"`

	LastStatementDate    *time.Time `firestore:"lastStatementDate,omitempty" json:"lastStatementDate,omitempty"`
	LastStatementBalance *float64   `firestore:"lastStatementBalance,omitempty" json:"lastStatementBalance,omitempty"`
	MinimumPayment       *float64   `firestore:"minimumPayment,omitempty" json:"minimumPayment,omitempty"`
	NextPaymentDueDate   *time.Time `firestore:"nextPaymentDueDate,omitempty" json:"nextPaymentDueDate,omitempty"`

	TargetUtilization   float64  `firestore:"targetUtilization,omitempty" json:"targetUtilization,omitempty"` // ratio, 0 = user default
	MonthlyPaydownLimit *float64 `firestore:"monthlyPaydownLimit,omitempty" json:"monthlyPaydownLimit,omitempty"`

	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt"`
}
