package store

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
)

type userStore struct {
	Client     *firestore.Client
	Collection *firestore.CollectionRef
}

func NewUserStore(client *firestore.Client) *userStore {
	return &userStore{
		Client:     client,
		Collection: client.Collection("users"),
	}
}

func (us *userStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := us.Collection.Doc(user.UID).Create(ctx, user)
	if status.Code(err) == codes.AlreadyExists {
		return errs.NewAlreadyExistsError("user already registered")
	}
	if err != nil {
		return errs.NewDatabaseError("create", "failed to create user", err)
	}
	return nil
}

func (us *userStore) UpdateUser(ctx context.Context, user *models.User) error {
	_, err := us.Collection.Doc(user.UID).Set(ctx, user, firestore.MergeAll)
	if err != nil {
		return errs.NewDatabaseError("update", "failed to update user", err)
	}
	return nil
}

func (us *userStore) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var user models.User

	doc, err := us.Collection.Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, errs.NewNotFoundError("user not found")
	}
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to get user", err)
	}
	if err := doc.DataTo(&user); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse user data", err)
	}

	return &user, nil
}

// GetSettings returns the user's defaults, or zero settings for users without a profile.
func (us *userStore) GetSettings(ctx context.Context, uid string) (models.UserSettings, error) {
	user, err := us.GetUser(ctx, uid)
	if err != nil {
		var notFound *errs.NotFoundError
		if errors.As(err, &notFound) {
			return models.UserSettings{}, nil
		}
		return models.UserSettings{}, err
	}
	return user.Settings, nil
}

// UpdateSettings writes only the given settings fields.
func (us *userStore) UpdateSettings(ctx context.Context, uid string, upd dto.SettingsUpdate) error {
	settings := map[string]any{}
	if upd.TargetUtilization != nil {
		settings["targetUtilization"] = *upd.TargetUtilization
	}
	if upd.MonthlyPaydownLimit != nil {
		settings["monthlyPaydownLimit"] = *upd.MonthlyPaydownLimit
	}
	if upd.RemindersEnabled != nil {
		settings["remindersEnabled"] = *upd.RemindersEnabled
	}
	fields := map[string]any{
		"settings":  settings,
		"updatedAt": time.Now(),
	}

	_, err := us.Collection.Doc(uid).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		return errs.NewDatabaseError("update", "failed to update user settings", err)
	}
	return nil
}

// MarkReminded records, per card id, the close date a reminder was last sent for.
func (us *userStore) MarkReminded(ctx context.Context, uid string, marks map[string]string) error {
	if len(marks) == 0 {
		return nil
	}
	_, err := us.Collection.Doc(uid).Set(ctx, map[string]any{"reminderMarks": marks}, firestore.MergeAll)
	if err != nil {
		return errs.NewDatabaseError("update", "failed to record reminder marks", err)
	}
	return nil
}

// ListUIDs streams every registered user id to fn.
func (us *userStore) ListUIDs(ctx context.Context, fn func(uid string) error) error {
	iter := us.Collection.Select("uid").Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return errs.NewDatabaseError("read", "failed to list users", err)
		}
		if err := fn(doc.Ref.ID); err != nil {
			return err
		}
	}
}
