package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/utilization-pilot/internal/errs"
)

type encrypter interface {
	KmsEncrypt(ctx context.Context, plaintext string) (string, error)
	KmsDecrypt(ctx context.Context, ciphertext string) (string, error)
}

// kmsTokenStore keeps KMS-encrypted Plaid access tokens in Firestore.
type kmsTokenStore struct {
	client *firestore.Client
	enc    encrypter
}

func NewKMSTokenStore(client *firestore.Client, enc encrypter) *kmsTokenStore {
	return &kmsTokenStore{client: client, enc: enc}
}

func (s *kmsTokenStore) doc(uid, itemID string) *firestore.DocumentRef {
	return s.client.Collection("users").Doc(uid).Collection("plaid_tokens").Doc(itemID)
}

func (s *kmsTokenStore) StorePlaidToken(ctx context.Context, uid, itemID, token string) error {
	ciphertext, err := s.enc.KmsEncrypt(ctx, token)
	if err != nil {
		return err
	}
	_, err = s.doc(uid, itemID).Set(ctx, map[string]any{
		"ciphertext": ciphertext,
		"updatedAt":  time.Now(),
	})
	if err != nil {
		return errs.NewDatabaseError("create", "failed to store access token", err)
	}
	return nil
}

func (s *kmsTokenStore) GetPlaidToken(ctx context.Context, uid, itemID string) (string, error) {
	snap, err := s.doc(uid, itemID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", errs.NewNotFoundError("access token not found")
	}
	if err != nil {
		return "", errs.NewDatabaseError("read", "failed to read access token", err)
	}
	ciphertext, _ := snap.Data()["ciphertext"].(string)
	if ciphertext == "" {
		return "", errs.NewNotFoundError("access token not found")
	}
	return s.enc.KmsDecrypt(ctx, ciphertext)
}

func (s *kmsTokenStore) DeletePlaidToken(ctx context.Context, uid, itemID string) error {
	if _, err := s.doc(uid, itemID).Delete(ctx); err != nil {
		return errs.NewDatabaseError("delete", "failed to delete access token", err)
	}
	return nil
}
