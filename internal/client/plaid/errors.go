package plaidclient

import (
	"errors"
	"fmt"

	"github.com/plaid/plaid-go/v24/plaid"

	"github.com/GregMSThompson/utilization-pilot/internal/errs"
)

// APIError is the decoded Plaid error body.
type APIError struct {
	Type    string
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Type, e.Code, e.Message)
}

// Error codes that mean the user must re-authenticate through Link.
var loginRequiredCodes = map[string]bool{
	"ITEM_LOGIN_REQUIRED":     true,
	"PENDING_EXPIRATION":      true,
	"ACCESS_NOT_GRANTED":      true,
	"INVALID_ACCESS_TOKEN":    true,
	"ITEM_NOT_FOUND":          true,
	"USER_PERMISSION_REVOKED": true,
}

// Error types Plaid documents as safe to retry.
var transientTypes = map[string]bool{
	"RATE_LIMIT_EXCEEDED": true,
	"API_ERROR":           true,
	"INSTITUTION_ERROR":   true,
}

var unsupportedCodes = map[string]bool{
	"PRODUCTS_NOT_SUPPORTED": true,
	"NO_LIABILITY_ACCOUNTS":  true,
}

func wrapPlaidError(msg string, err error) error {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		// transport failure, no Plaid body
		return errs.NewExternalServiceError("plaid", msg, true, err)
	}
	return classify(msg, &APIError{
		Type:    string(plaidErr.GetErrorType()),
		Code:    plaidErr.GetErrorCode(),
		Message: plaidErr.GetErrorMessage(),
	})
}

func classify(msg string, apiErr *APIError) error {
	if apiErr.Code == "INVALID_PUBLIC_TOKEN" {
		return errs.NewValidationError("public token is invalid or expired")
	}
	return errs.NewExternalServiceError("plaid", msg, transientTypes[apiErr.Type], apiErr)
}

// NeedsRelink reports whether err means the item must go back through Link.
func NeedsRelink(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && loginRequiredCodes[apiErr.Code]
}

// IsProductNotSupported reports whether the institution has no liabilities data.
func IsProductNotSupported(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && unsupportedCodes[apiErr.Code]
}
