package dto

type TransactionQuery struct {
	BankID    *string
	AccountID *string
	Pending   *bool
	DateFrom  *string
	DateTo    *string
	Limit     int
}
