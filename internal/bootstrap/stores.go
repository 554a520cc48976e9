package bootstrap

import (
	"context"
	"io"

	"github.com/GregMSThompson/utilization-pilot/internal/config"
	"github.com/GregMSThompson/utilization-pilot/internal/crypto"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
	"github.com/GregMSThompson/utilization-pilot/internal/ratelimit"
	"github.com/GregMSThompson/utilization-pilot/internal/store"
	"github.com/GregMSThompson/utilization-pilot/internal/utilization"
)

type TokenVault interface {
	StorePlaidToken(ctx context.Context, uid, itemID, token string) error
	GetPlaidToken(ctx context.Context, uid, itemID string) (string, error)
	DeletePlaidToken(ctx context.Context, uid, itemID string) error
}

type HistoryStore interface {
	Record(ctx context.Context, snap models.UtilizationSnapshot) error
	List(ctx context.Context, uid string, limit int) ([]models.UtilizationSnapshot, error)
}

// TokenVault picks the access-token backend named by TOKENBACKEND.
func (bs *Bootstrap) TokenVault(cfg *config.Config) TokenVault {
	if cfg.TokenBackend == config.TokenBackendSecretManager {
		return store.NewPlaidSecretsStore(bs.SecretManager, cfg.ProjectID)
	}
	return store.NewKMSTokenStore(bs.Firestore, crypto.NewKMS(bs.KMS, cfg.KMSKeyName))
}

// HistoryStore uses Postgres when DATABASEURL is set, Firestore otherwise.
// The returned closer is nil for Firestore.
func (bs *Bootstrap) HistoryStore(ctx context.Context, cfg *config.Config) (HistoryStore, io.Closer, error) {
	if cfg.DatabaseURL == "" {
		return store.NewHistoryStore(bs.Firestore), nil, nil
	}
	pg, err := store.OpenPostgresHistory(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	bs.Log.Info("utilization history stored in postgres")
	return pg, pg, nil
}

func (bs *Bootstrap) RateLimitStore(cfg *config.Config) ratelimit.Store {
	if cfg.RateLimitBackend == config.RateLimitFirestore {
		return store.NewRateLimitStore(bs.Firestore)
	}
	return ratelimit.NewMemoryStore()
}

func EngineOptions(cfg *config.Config) utilization.Options {
	buffer := cfg.CloseBufferDays
	return utilization.Options{
		FallbackCloseDay:       cfg.StatementFallbackDay,
		BufferDays:             &buffer,
		ReportConfiguredTarget: cfg.ReportConfiguredTarget,
	}
}
