package models

import (
	"time"
)

type Bank struct {
	BankID        string     `firestore:"bankId" json:"bankId"` // Plaid item_id
	Institution   string     `firestore:"institution" json:"institution"`
	InstitutionID string     `firestore:"institutionId,omitempty" json:"institutionId,omitempty"`
	Status        string     `firestore:"status" json:"status"` // "active", "login_required", "error"
	LastSyncedAt  *time.Time `firestore:"lastSyncedAt,omitempty" json:"lastSyncedAt,omitempty"`
	CreatedAt     time.Time  `firestore:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `firestore:"updatedAt" json:"updatedAt"`
}

const (
	BankStatusActive        = "active"
	BankStatusLoginRequired = "login_required"
	BankStatusError         = "error"
)

// PlaidItem maps a Plaid item to its owner so webhooks can be routed.
type PlaidItem struct {
	ItemID    string    `firestore:"itemId" json:"itemId"`
	UID       string    `firestore:"uid" json:"uid"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}
