package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"cloud.google.com/go/firestore"
	kms "cloud.google.com/go/kms/apiv1"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"firebase.google.com/go/v4/auth"

	plaidclient "github.com/GregMSThompson/utilization-pilot/internal/client/plaid"
	vertexclient "github.com/GregMSThompson/utilization-pilot/internal/client/vertex"
	"github.com/GregMSThompson/utilization-pilot/internal/config"
	"github.com/GregMSThompson/utilization-pilot/pkg/logger"
)

type Bootstrap struct {
	Log           *slog.Logger
	Firestore     *firestore.Client
	Firebase      *auth.Client
	KMS           *kms.KeyManagementClient
	SecretManager *secretmanager.Client
	PlaidAdapter  *plaidclient.Adapter
	VertexAdapter *vertexclient.Adapter
}

// Run creates every external client. On error the partially built Bootstrap is
// returned so the caller can log and Close it.
func Run(cfg *config.Config) (*Bootstrap, error) {
	var err error
	applicationCtx := context.Background()
	bs := new(Bootstrap)

	bs.Log = logger.New(cfg.LogLevel, logger.NewCloudRunHandler)
	if err = cfg.Validate(); err != nil {
		return bs, err
	}

	bs.Firestore, err = InitFirestore(applicationCtx, cfg.ProjectID)
	if err != nil {
		return bs, err
	}
	bs.Firebase, err = InitFirebase(applicationCtx, cfg.ProjectID)
	if err != nil {
		return bs, err
	}

	switch cfg.TokenBackend {
	case config.TokenBackendKMS:
		bs.KMS, err = InitKMS(applicationCtx)
	case config.TokenBackendSecretManager:
		bs.SecretManager, err = InitSecretManager(applicationCtx)
	}
	if err != nil {
		return bs, err
	}

	bs.PlaidAdapter = plaidclient.NewAdapter(cfg.PlaidClientID, cfg.PlaidSecret, cfg.PlaidEnvironment, cfg.PlaidWebhookURL)
	bs.VertexAdapter, err = vertexclient.NewAdapter(applicationCtx, bs.Log, cfg.ProjectID, cfg.Region, cfg.VertexModel)
	if err != nil {
		return bs, err
	}

	bs.Log.Info("bootstrap complete",
		"environment", cfg.Environment,
		"plaid_environment", cfg.PlaidEnvironment,
		"token_backend", cfg.TokenBackend,
	)
	return bs, nil
}

// Close releases every client that was created.
func (bs *Bootstrap) Close() error {
	var errList []error
	if bs.VertexAdapter != nil {
		errList = append(errList, bs.VertexAdapter.Close())
	}
	if bs.SecretManager != nil {
		errList = append(errList, bs.SecretManager.Close())
	}
	if bs.KMS != nil {
		errList = append(errList, bs.KMS.Close())
	}
	if bs.Firestore != nil {
		errList = append(errList, bs.Firestore.Close())
	}
	return errors.Join(errList...)
}
