package models

import "time"

// UtilizationSnapshot is one recorded dashboard evaluation.
type UtilizationSnapshot struct {
	SnapshotID         string                `firestore:"snapshotId" json:"snapshotId"`
	UID                string                `firestore:"uid" json:"-"`
	TotalBalance       float64               `firestore:"totalBalance" json:"totalBalance"`
	TotalLimit         float64               `firestore:"totalLimit" json:"totalLimit"`
	OverallUtilization int                   `firestore:"overallUtilization" json:"overallUtilization"`
	Cards              []CardUtilizationMark `firestore:"cards" json:"cards"`
	CreatedAt          time.Time             `firestore:"createdAt" json:"createdAt"`
}

type CardUtilizationMark struct {
	AccountID   string  `firestore:"accountId" json:"accountId"`
	Balance     float64 `firestore:"balance" json:"balance"`
	Limit       float64 `firestore:"limit" json:"limit"`
	Utilization int     `firestore:"utilization" json:"utilization"`
	Band        string  `firestore:"band" json:"band"`
}
