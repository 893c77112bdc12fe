package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"readability-backend/internal/account"
	"readability-backend/internal/acquire"
	"readability-backend/internal/analyses"
	googleauth "readability-backend/internal/auth"
	"readability-backend/internal/fanout"
	"readability-backend/internal/llm"
	openai "readability-backend/internal/llm/openai"
	"readability-backend/internal/pipeline"
	"readability-backend/internal/quota"
	"readability-backend/internal/services/health"
	"readability-backend/internal/shared/config"
	"readability-backend/internal/shared/metrics"
	"readability-backend/internal/shared/server"
	"readability-backend/internal/shared/storage/db"
	"readability-backend/internal/shared/storage/object"
	localstore "readability-backend/internal/shared/storage/object/local"
	miniostore "readability-backend/internal/shared/storage/object/minio"
	s3store "readability-backend/internal/shared/storage/object/s3"
	"readability-backend/internal/shared/telemetry"
	"readability-backend/internal/shares"
	"readability-backend/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config         config.Config
	Router         *gin.Engine
	DB             *sql.DB
	Store          object.ObjectStore
	AnalysesRepo   analyses.Repo
	UsersRepo      users.Repo
	History        *analyses.Service
	Quota          *quota.Service
	Shares         *shares.Service
	Users          *users.Service
	Account        *account.Service
	Runs           *pipeline.Runs
	Health         *health.Service
	RunHandler     *pipeline.Handler
	HistoryHandler *analyses.Handler
	ShareHandler   *shares.Handler
	QuotaHandler   *quota.Handler
	AccountHandler *account.Handler
	UsersHandler   *users.Handler
	GoogleAuth     *googleauth.GoogleService
}

// Build prepares every dependency and wires the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := BuildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Env:             cfg.Env,
		CORSAllowOrigin: cfg.CORSAllowOrigin,
		Health:          app.Health,
		RunHandler:      app.RunHandler,
		HistoryHandler:  app.HistoryHandler,
		ShareHandler:    app.ShareHandler,
		QuotaHandler:    app.QuotaHandler,
		AccountHandler:  app.AccountHandler,
		UserHandler:     app.UsersHandler,
		GoogleAuth:      app.GoogleAuth,
	})

	return app, nil
}

// Close cancels in-flight runs and releases the database.
func (a *App) Close() error {
	if a.Runs != nil {
		a.Runs.CancelAll()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DB_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DB_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	if err := metrics.RegisterDBStats(sqlDB); err != nil {
		telemetry.Warn("bootstrap.db_metrics_failed", map[string]any{"error": err.Error()})
	}
	return sqlDB, nil
}

// BuildStore returns the snapshot blob store selected by OBJECT_STORE_TYPE.
func BuildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE_TYPE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, s3store.Options{
			Region:   cfg.AWSRegion,
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			KMSKeyID: cfg.SSEKMSKeyID,
			Endpoint: cfg.S3Endpoint,
		})
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.AWSRegion,
			UseSSL:    cfg.MinioUseSSL,
			Prefix:    cfg.S3Prefix,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// QuotaLimits overlays configured role limits on the defaults.
func QuotaLimits(cfg config.PipelineConfig) map[string]int {
	limits := quota.DefaultLimits()
	for role, n := range cfg.RoleLimits {
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" || n <= 0 {
			continue
		}
		limits[role] = n
	}
	return limits
}

// NewFetcher builds the URL fetcher from the pipeline configuration.
func NewFetcher(cfg config.PipelineConfig) *acquire.Fetcher {
	return acquire.NewFetcher(acquire.Options{
		Timeout:       time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
		MaxRedirects:  cfg.MaxRedirects,
		RatePerMinute: cfg.FetchRatePerMinute,
	})
}

// ModelTasks builds one fan-out task per configured reader model. Models that
// are disabled or cannot be constructed are kept as disabled tasks.
func ModelTasks(cfg config.PipelineConfig) []fanout.Task {
	tasks := make([]fanout.Task, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		timeout := m.TimeoutSeconds
		if timeout <= 0 {
			timeout = cfg.ModelTimeoutSeconds
		}
		task := fanout.Task{
			Key:     m.Key,
			Model:   m.Model,
			Timeout: time.Duration(timeout) * time.Second,
		}
		if m.Enabled {
			client, err := openai.NewClient(m.APIKey, m.BaseURL, m.Model)
			if err != nil {
				telemetry.Warn("bootstrap.model_disabled", map[string]any{
					"model": m.Key,
					"error": err.Error(),
				})
			} else {
				task.Client = client
				task.Enabled = true
			}
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// PipelineSettings builds the explicit orchestrator settings.
func PipelineSettings(cfg config.PipelineConfig) pipeline.Settings {
	return pipeline.Settings{
		Models:          ModelTasks(cfg),
		PromptVersion:   llm.DefaultPromptVersion,
		SnapshotEnabled: cfg.SnapshotEnabled,
	}
}

func buildServices(app *App) error {
	var analysisRepo analyses.Repo
	var userRepo users.Repo

	if app.DB != nil {
		analysisRepo = &analyses.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
	} else {
		analysisRepo = analyses.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	history := &analyses.Service{Repo: analysisRepo, Store: app.Store}
	quotaSvc := &quota.Service{
		Store:     analysisRepo,
		Limits:    QuotaLimits(app.Config.Pipeline),
		Snapshots: history,
	}
	shareSvc := &shares.Service{Repo: analysisRepo, BaseURL: app.Config.PublicBaseURL}
	userSvc := users.NewService(userRepo, app.Config.AdminEmails)

	runs := pipeline.NewRuns(PipelineSettings(app.Config.Pipeline), pipeline.Deps{
		Fetcher: NewFetcher(app.Config.Pipeline),
		History: history,
		Quota:   quotaSvc,
		Store:   app.Store,
	})

	var pinger health.Pinger
	if app.DB != nil {
		pinger = app.DB
	}

	app.AnalysesRepo = analysisRepo
	app.UsersRepo = userRepo
	app.History = history
	app.Quota = quotaSvc
	app.Shares = shareSvc
	app.Users = userSvc
	app.Account = account.NewService(analysisRepo, quotaSvc)
	app.Runs = runs
	app.Health = health.NewService(pinger)
	app.RunHandler = pipeline.NewHandler(runs)
	app.HistoryHandler = analyses.NewHandler(history)
	app.ShareHandler = shares.NewHandler(shareSvc)
	app.QuotaHandler = quota.NewHandler(quotaSvc)
	app.AccountHandler = account.NewHandler(app.Account)
	app.UsersHandler = users.NewHandler(userSvc)
	app.GoogleAuth = googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)

	if app.RunHandler == nil || app.HistoryHandler == nil || app.ShareHandler == nil {
		return errors.New("failed to initialize handlers")
	}

	return nil
}
