package setup

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labportal/portal/frontend/internal/apiclient"
	"github.com/labportal/portal/frontend/internal/compose"
	"github.com/labportal/portal/frontend/internal/draft"
	"github.com/labportal/portal/frontend/internal/handler"
	"github.com/labportal/portal/frontend/internal/markdown"
	"github.com/labportal/portal/shared/config"
	"github.com/labportal/portal/shared/domain"
	"github.com/labportal/portal/shared/jwt"
	"github.com/labportal/portal/shared/logger"
	mw "github.com/labportal/portal/shared/middleware"
	"github.com/labportal/portal/shared/storage/sqlite"
)

const (
	purgeInterval       = time.Hour
	checkpointRetention = 24 * time.Hour
	expiryInterval      = time.Minute
	// tokenTTL only matters for tokens this service would issue, which it never does.
	tokenTTL = time.Hour
)

type Dependencies struct {
	Handler    *handler.Handler
	Auth       *mw.Auth
	Sessions   *compose.Registry
	Public     config.Public
	Storage    *sqlite.Storage
	CancelFunc context.CancelFunc
}

func SetupDependencies(cfg *config.Config) (*Dependencies, error) {
	// Create cancellable context for background tasks
	ctx, cancel := context.WithCancel(context.Background())

	store, err := sqlite.New(cfg.Public.Storage.SqlitePath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	store.StartBackgroundPurge(ctx, purgeInterval, checkpointRetention, domain.DraftTTL)

	apiClient := apiclient.New(cfg.Public.Api.BaseURL, cfg.Public.Api.RequestTimeout)

	sessions := compose.NewRegistry(compose.NewBuilder(compose.Deps{
		API:   apiClient,
		Store: store,
		// chunk PUTs carry up to a chunk each and have no client timeout
		StorageClient: &http.Client{},
		Checkpoints:   cfg.Public.Upload.Checkpoints,
		Draft: draft.Options{
			IdleDelay:        cfg.Public.Draft.IdleDelay,
			AutosaveInterval: cfg.Public.Draft.AutosaveInterval,
		},
	}), cfg.Public.Draft.SessionIdleTTL)
	sessions.StartBackgroundExpiry(ctx, expiryInterval)

	h := handler.New(sessions, markdown.New(), cfg.Public)
	auth := mw.NewAuth(jwt.New(cfg.JwtKey(), tokenTTL))

	logger.Log.Info("dependencies ready",
		"api", cfg.Public.Api.BaseURL,
		"sqlite", cfg.Public.Storage.SqlitePath,
		"checkpoints", cfg.Public.Upload.Checkpoints)

	return &Dependencies{
		Handler:    h,
		Auth:       auth,
		Sessions:   sessions,
		Public:     cfg.Public,
		Storage:    store,
		CancelFunc: cancel,
	}, nil
}
