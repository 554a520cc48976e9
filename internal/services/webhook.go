package services

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
	"github.com/GregMSThompson/utilization-pilot/pkg/helpers"
	"github.com/GregMSThompson/utilization-pilot/pkg/logger"
)

// maxWebhookAge is how old a webhook's iat may be before it is rejected as a replay.
const maxWebhookAge = 5 * time.Minute

// HandleWebhook processes a Plaid webhook. Unknown items and codes are acknowledged and ignored.
func (s *plaidService) HandleWebhook(ctx context.Context, body []byte, signedJWT string) error {
	log := logger.FromContext(ctx)

	if s.verifier != nil {
		if err := s.verifier.Verify(ctx, body, signedJWT); err != nil {
			log.Warn("webhook verification failed", "error", err)
			return errs.NewUnauthorizedError("invalid webhook signature")
		}
	}

	var hook dto.PlaidWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return errs.NewValidationError("invalid webhook payload")
	}
	if logger.IsDebugEnabled(ctx) {
		log.Debug("webhook payload", "body", string(body))
	}
	if hook.ItemID == "" {
		return errs.NewValidationError("webhook item_id is required")
	}

	uid, err := s.items.GetOwner(ctx, hook.ItemID)
	if err != nil {
		var nf *errs.NotFoundError
		if errors.As(err, &nf) {
			log.Info("webhook for unknown item ignored", "item_id", hook.ItemID)
			return nil
		}
		return err
	}

	log = log.With("uid", uid, "bank_id", hook.ItemID, "webhook_type", hook.WebhookType, "webhook_code", hook.WebhookCode)
	ctx = logger.ToContext(ctx, log)
	bankID := helpers.Ptr(hook.ItemID)

	switch hook.WebhookType {
	case "LIABILITIES":
		if hook.WebhookCode == "DEFAULT_UPDATE" {
			_, err = s.SyncAccounts(ctx, uid, bankID)
		}
	case "TRANSACTIONS":
		if hook.WebhookCode == "SYNC_UPDATES_AVAILABLE" {
			if _, err = s.SyncTransactions(ctx, uid, bankID); err == nil {
				_, err = s.SyncAccounts(ctx, uid, bankID)
			}
		}
	case "ITEM":
		err = s.handleItemWebhook(ctx, uid, hook)
	default:
		log.Debug("webhook ignored")
	}
	if err != nil {
		return err
	}

	log.Info("webhook processed")
	return nil
}

func (s *plaidService) handleItemWebhook(ctx context.Context, uid string, hook dto.PlaidWebhook) error {
	log := logger.FromContext(ctx)

	status := ""
	switch hook.WebhookCode {
	case "PENDING_EXPIRATION", "USER_PERMISSION_REVOKED":
		status = models.BankStatusLoginRequired
	case "ERROR":
		status = models.BankStatusError
		if hook.Error != nil && hook.Error.ErrorCode == "ITEM_LOGIN_REQUIRED" {
			status = models.BankStatusLoginRequired
		}
	case "LOGIN_REPAIRED":
		status = models.BankStatusActive
	}
	if status == "" {
		log.Debug("item webhook ignored")
		return nil
	}

	log.Info("bank status changed by webhook", "status", status)
	return s.banks.MarkSynced(ctx, uid, hook.ItemID, status, s.clockNow())
}

// --- signature verification ---

type verificationKeyFetcher interface {
	GetWebhookVerificationKey(ctx context.Context, keyID string) (dto.PlaidVerificationKey, error)
}

type webhookClaims struct {
	RequestBodySHA256 string `json:"request_body_sha256"`
	jwt.RegisteredClaims
}

// plaidWebhookVerifier checks the Plaid-Verification header: an ES256 JWT whose
// key is fetched by kid, with a fresh iat and a sha256 of the raw body.
type plaidWebhookVerifier struct {
	keys     verificationKeyFetcher
	mu       sync.Mutex
	cache    map[string]*ecdsa.PublicKey
	clockNow func() time.Time
}

func NewWebhookVerifier(keys verificationKeyFetcher) *plaidWebhookVerifier {
	return &plaidWebhookVerifier{
		keys:     keys,
		cache:    make(map[string]*ecdsa.PublicKey),
		clockNow: time.Now,
	}
}

func (v *plaidWebhookVerifier) Verify(ctx context.Context, body []byte, signedJWT string) error {
	if signedJWT == "" {
		return errors.New("missing verification header")
	}

	claims := &webhookClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithTimeFunc(v.clockNow),
	)
	_, err := parser.ParseWithClaims(signedJWT, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		return v.key(ctx, kid)
	})
	if err != nil {
		return err
	}

	if claims.IssuedAt == nil {
		return errors.New("missing iat")
	}
	if v.clockNow().Sub(claims.IssuedAt.Time) > maxWebhookAge {
		return errors.New("webhook is too old")
	}

	sum := sha256.Sum256(body)
	expected := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(expected), []byte(claims.RequestBodySHA256)) != 1 {
		return errors.New("body hash mismatch")
	}
	return nil
}

func (v *plaidWebhookVerifier) key(ctx context.Context, kid string) (*ecdsa.PublicKey, error) {
	v.mu.Lock()
	cached, ok := v.cache[kid]
	v.mu.Unlock()
	if ok {
		return cached, nil
	}

	jwk, err := v.keys.GetWebhookVerificationKey(ctx, kid)
	if err != nil {
		return nil, err
	}
	if jwk.ExpiredAt != nil {
		return nil, fmt.Errorf("verification key %s expired", kid)
	}
	pub, err := ecdsaKeyFromJWK(jwk)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.cache[kid] = pub
	v.mu.Unlock()
	return pub, nil
}

func ecdsaKeyFromJWK(jwk dto.PlaidVerificationKey) (*ecdsa.PublicKey, error) {
	if jwk.Curve != "P-256" {
		return nil, fmt.Errorf("unsupported curve %q", jwk.Curve)
	}
	x, err := base64.RawURLEncoding.DecodeString(jwk.X)
	if err != nil {
		return nil, fmt.Errorf("decode x: %w", err)
	}
	y, err := base64.RawURLEncoding.DecodeString(jwk.Y)
	if err != nil {
		return nil, fmt.Errorf("decode y: %w", err)
	}
	pub := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}
	if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
		return nil, errors.New("verification key is not on curve")
	}
	return pub, nil
}
