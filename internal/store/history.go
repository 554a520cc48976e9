package store

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
)

const defaultHistoryLimit = 30

type historyStore struct {
	client *firestore.Client
}

func NewHistoryStore(client *firestore.Client) *historyStore {
	return &historyStore{client: client}
}

func (s *historyStore) collection(uid string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(uid).Collection("utilization_history")
}

func (s *historyStore) Record(ctx context.Context, snap models.UtilizationSnapshot) error {
	if _, err := s.collection(snap.UID).Doc(snap.SnapshotID).Set(ctx, snap); err != nil {
		return errs.NewDatabaseError("create", "failed to record utilization snapshot", err)
	}
	return nil
}

// List returns the newest snapshots first.
func (s *historyStore) List(ctx context.Context, uid string, limit int) ([]models.UtilizationSnapshot, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	docs, err := s.collection(uid).OrderBy("createdAt", firestore.Desc).Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list utilization history", err)
	}
	out := make([]models.UtilizationSnapshot, 0, len(docs))
	for _, d := range docs {
		var snap models.UtilizationSnapshot
		if err := d.DataTo(&snap); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse utilization snapshot", err)
		}
		out = append(out, snap)
	}
	return out, nil
}
