package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
)

// advisorStore keeps advisor conversations under users/{uid}/advisor_sessions.
type advisorStore struct {
	client *firestore.Client
}

func NewAdvisorStore(client *firestore.Client) *advisorStore {
	return &advisorStore{client: client}
}

func (s *advisorStore) sessionDoc(uid, sessionID string) *firestore.DocumentRef {
	return s.client.Collection("users").Doc(uid).Collection("advisor_sessions").Doc(sessionID)
}

// SaveMessage appends msg and bumps the session's activity time in one batch.
func (s *advisorStore) SaveMessage(ctx context.Context, uid, sessionID string, msg models.AIMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	session := s.sessionDoc(uid, sessionID)
	batch := s.client.Batch()
	batch.Create(session.Collection("messages").NewDoc(), msg)
	batch.Set(session, map[string]any{
		"lastMessageAt": msg.CreatedAt,
		"expiresAt":     msg.ExpiresAt,
	}, firestore.MergeAll)

	if _, err := batch.Commit(ctx); err != nil {
		return errs.NewDatabaseError("create", "failed to save advisor message", err)
	}
	return nil
}

// ListMessages returns the last limit messages in chronological order.
func (s *advisorStore) ListMessages(ctx context.Context, uid, sessionID string, limit int) ([]models.AIMessage, error) {
	query := s.sessionDoc(uid, sessionID).Collection("messages").Query.OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []models.AIMessage
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errs.NewDatabaseError("read", "failed to list advisor messages", err)
		}
		var msg models.AIMessage
		if err := doc.DataTo(&msg); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse advisor message", err)
		}
		out = append(out, msg)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
