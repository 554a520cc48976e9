package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/ratelimit"
)

type rateWindow struct {
	Key       string      `firestore:"key"`
	Hits      []time.Time `firestore:"hits"`
	ExpiresAt time.Time   `firestore:"expiresAt"` // TTL policy field
}

// rateLimitStore shares sliding windows across instances through Firestore transactions.
type rateLimitStore struct {
	client     *firestore.Client
	collection *firestore.CollectionRef
}

func NewRateLimitStore(client *firestore.Client) *rateLimitStore {
	return &rateLimitStore{client: client, collection: client.Collection("rate_limits")}
}

// docID hashes the key so identities like IPv6 addresses are valid document ids.
func docID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func (s *rateLimitStore) Take(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (ratelimit.Decision, error) {
	ref := s.collection.Doc(docID(key))
	var decision ratelimit.Decision

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current rateWindow
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if snap != nil && snap.Exists() {
			if err := snap.DataTo(&current); err != nil {
				return err
			}
		}

		var hits []time.Time
		decision, hits = ratelimit.Slide(current.Hits, now, window, limit)
		return tx.Set(ref, rateWindow{
			Key:       key,
			Hits:      hits,
			ExpiresAt: now.Add(window),
		})
	})
	if err != nil {
		return ratelimit.Decision{}, errs.NewDatabaseError("update", "failed to update rate limit window", err)
	}
	return decision, nil
}
