package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GregMSThompson/utilization-pilot/internal/models"
	"github.com/GregMSThompson/utilization-pilot/pkg/helpers"
)

type stubUserStore struct {
	user            *models.User
	createUserCalls int
	err             error
}

func (s *stubUserStore) CreateUser(_ context.Context, user *models.User) error {
	s.user = user
	s.createUserCalls++
	return s.err
}

func (s *stubUserStore) GetUser(_ context.Context, _ string) (*models.User, error) {
	return s.user, s.err
}

func TestUserServiceCreateUser(t *testing.T) {
	store := &stubUserStore{}
	svc := NewUserService(store)
	now := time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC)
	svc.clockNow = func() time.Time { return now }

	err := svc.CreateUser(helpers.TestCtx(), "uid-123", "user@example.com", "Jane", "Doe")
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	if store.createUserCalls != 1 {
		t.Fatalf("CreateUser called %d times, want 1", store.createUserCalls)
	}
	if store.user == nil {
		t.Fatalf("store received nil user")
	}
	if store.user.UID != "uid-123" || store.user.Email != "user@example.com" {
		t.Fatalf("unexpected user identifiers: %+v", store.user)
	}
	if store.user.FirstName != "Jane" || store.user.LastName != "Doe" {
		t.Fatalf("unexpected user name: %+v", store.user)
	}
	if !store.user.CreatedAt.Equal(now) || !store.user.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps were not set from the clock: %+v", store.user)
	}
	if !store.user.Settings.RemindersEnabled {
		t.Fatal("reminders should default to on")
	}
}

func TestUserServiceCreateUserStoreError(t *testing.T) {
	store := &stubUserStore{err: errors.New("store failure")}
	svc := NewUserService(store)

	err := svc.CreateUser(helpers.TestCtx(), "uid-456", "user2@example.com", "John", "Smith")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if store.createUserCalls != 1 {
		t.Fatalf("CreateUser called %d times, want 1", store.createUserCalls)
	}
	if store.user == nil || store.user.UID != "uid-456" {
		t.Fatalf("store did not receive expected user payload: %+v", store.user)
	}
}
