package models

import (
	"time"
)

type User struct {
	UID       string       `firestore:"uid" json:"uid"`
	Email     string       `firestore:"email" json:"email"`
	FirstName string       `firestore:"firstName" json:"firstName"`
	LastName  string       `firestore:"lastName" json:"lastName"`
	Settings  UserSettings `firestore:"settings" json:"settings"`
	CreatedAt time.Time    `firestore:"createdAt" json:"createdAt"`
	UpdatedAt time.Time    `firestore:"updatedAt" json:"updatedAt"`

	// ReminderMarks maps a card id to the close date (YYYY-MM-DD) it was last reminded for.
	ReminderMarks map[string]string `firestore:"reminderMarks,omitempty" json:"-"`
}

// UserSettings are the defaults applied to accounts without their own values.
type UserSettings struct {
	TargetUtilization   float64  `firestore:"targetUtilization,omitempty" json:"targetUtilization,omitempty"`
	MonthlyPaydownLimit *float64 `firestore:"monthlyPaydownLimit,omitempty" json:"monthlyPaydownLimit,omitempty"`
	RemindersEnabled    bool     `firestore:"remindersEnabled" json:"remindersEnabled"`
}
