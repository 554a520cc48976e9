package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
)

// itemStore is a top-level index from Plaid item id to owning user.
type itemStore struct {
	collection *firestore.CollectionRef
}

func NewItemStore(client *firestore.Client) *itemStore {
	return &itemStore{collection: client.Collection("plaid_items")}
}

func (s *itemStore) SaveItem(ctx context.Context, itemID, uid string) error {
	_, err := s.collection.Doc(itemID).Set(ctx, models.PlaidItem{
		ItemID:    itemID,
		UID:       uid,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return errs.NewDatabaseError("create", "failed to save item owner", err)
	}
	return nil
}

func (s *itemStore) GetOwner(ctx context.Context, itemID string) (string, error) {
	doc, err := s.collection.Doc(itemID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", errs.NewNotFoundError("unknown item")
	}
	if err != nil {
		return "", errs.NewDatabaseError("read", "failed to get item owner", err)
	}
	var item models.PlaidItem
	if err := doc.DataTo(&item); err != nil {
		return "", errs.NewDatabaseError("read", "failed to parse item owner", err)
	}
	return item.UID, nil
}

func (s *itemStore) DeleteItem(ctx context.Context, itemID string) error {
	if _, err := s.collection.Doc(itemID).Delete(ctx); err != nil {
		return errs.NewDatabaseError("delete", "failed to delete item owner", err)
	}
	return nil
}
