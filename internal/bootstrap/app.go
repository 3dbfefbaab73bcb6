package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"quotation-backend/internal/documents"
	"quotation-backend/internal/quotations"
	"quotation-backend/internal/services/health"
	"quotation-backend/internal/shared/auth"
	"quotation-backend/internal/shared/config"
	"quotation-backend/internal/shared/server"
	"quotation-backend/internal/shared/server/middleware"
	"quotation-backend/internal/shared/storage/db"
	"quotation-backend/internal/shared/storage/object"
	localstore "quotation-backend/internal/shared/storage/object/local"
	s3store "quotation-backend/internal/shared/storage/object/s3"
	"quotation-backend/internal/shared/telemetry"
	"quotation-backend/internal/users"
)

const redisKeyPrefix = "quotation:rate_limit:"

// App holds shared dependencies and the assembled router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Redis  *redis.Client
	Store  object.ObjectStore
	Tokens *auth.Issuer

	UsersRepo      users.Repo
	QuotationsRepo quotations.Repo
	DocumentsRepo  documents.Repo

	UsersService      *users.Service
	QuotationsService *quotations.Service
	DocumentsService  *documents.Service
}

// Build validates cfg and prepares every dependency. Without a database in a
// dev-like environment the app runs on in-memory repositories.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Tokens: tokens,
	}
	limiter, err := app.buildLimiter()
	if err != nil {
		return nil, err
	}
	app.buildServices()

	app.Router = server.NewRouter(server.RouterDeps{
		Config:     cfg,
		Tokens:     tokens,
		Limiter:    limiter,
		Health:     health.NewService(app.pinger()),
		Users:      users.NewHandler(app.UsersService),
		Quotations: quotations.NewHandler(app.QuotationsService),
		Documents:  documents.NewHandler(app.DocumentsService),
		Dashboard:  server.NewDashboardHandler(app.QuotationsService, app.UsersService),
	})
	return app, nil
}

// Close releases the database pool and the Redis client.
func (a *App) Close() error {
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	return errors.Join(errs...)
}

func (a *App) pinger() health.Pinger {
	if a.DB == nil {
		return nil
	}
	return a.DB
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "database connect failed", "err": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildLimiter shares buckets through Redis when REDIS_URL is set.
func (a *App) buildLimiter() (middleware.Limiter, error) {
	if strings.TrimSpace(a.Config.RedisURL) == "" {
		return middleware.NewRateLimiter(nil), nil
	}
	opts, err := redis.ParseURL(a.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	a.Redis = redis.NewClient(opts)
	return middleware.NewRedisLimiter(a.Redis, redisKeyPrefix), nil
}

func (a *App) buildServices() {
	if a.DB != nil {
		a.UsersRepo = &users.PGRepo{DB: a.DB}
		a.QuotationsRepo = &quotations.PGRepo{DB: a.DB}
		a.DocumentsRepo = &documents.PGRepo{DB: a.DB}
	} else {
		a.UsersRepo, a.QuotationsRepo, a.DocumentsRepo = memoryRepos()
	}

	a.UsersService = users.NewService(a.UsersRepo, a.Tokens, a.Config.BcryptCost)
	a.UsersService.AllowAdminSignup = a.Config.AllowAdminSignup
	a.QuotationsService = quotations.NewService(a.QuotationsRepo, attachmentSource{repo: a.DocumentsRepo}, a.Store)
	a.DocumentsService = documents.NewService(a.Store, a.DocumentsRepo, a.QuotationsService)
}

// memoryRepos links the in-memory repositories the way the Postgres foreign
// keys and joins link the tables.
func memoryRepos() (*users.MemoryRepo, *quotations.MemoryRepo, *documents.MemoryRepo) {
	userRepo := users.NewMemoryRepo()
	quotationRepo := quotations.NewMemoryRepo()
	documentRepo := documents.NewMemoryRepo()

	userName := func(id int64) (string, string) {
		u, err := userRepo.GetByID(context.Background(), id)
		if err != nil {
			return "", ""
		}
		return u.Name, u.Email
	}

	quotationRepo.Owners = userName
	quotationRepo.Cascade = documentRepo.DeleteByQuotation

	documentRepo.QuotationOwner = func(ctx context.Context, id int64) (int64, error) {
		q, err := quotationRepo.Get(ctx, id)
		if errors.Is(err, quotations.ErrNotFound) {
			return 0, documents.ErrQuotationNotFound
		}
		if err != nil {
			return 0, err
		}
		return q.UserID, nil
	}
	documentRepo.Labels = func(quotationID, uploaderID int64) (string, string) {
		var service string
		if q, err := quotationRepo.Get(context.Background(), quotationID); err == nil {
			service = q.Service
		}
		name, _ := userName(uploaderID)
		return service, name
	}
	return userRepo, quotationRepo, documentRepo
}

// attachmentSource exposes document rows as quotation attachments.
type attachmentSource struct {
	repo documents.Repo
}

func (a attachmentSource) AttachmentsFor(ctx context.Context, quotationIDs ...int64) (map[int64][]quotations.Attachment, error) {
	byQuotation, err := a.repo.ListByQuotations(ctx, quotationIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]quotations.Attachment, len(byQuotation))
	for id, docs := range byQuotation {
		attachments := make([]quotations.Attachment, 0, len(docs))
		for _, d := range docs {
			attachments = append(attachments, quotations.Attachment{
				ID:         d.ID,
				UploadedBy: d.UserID,
				FileName:   d.FileName,
				MimeType:   d.MimeType,
				SizeBytes:  d.SizeBytes,
				UploadedAt: d.UploadedAt,
			})
		}
		out[id] = attachments
	}
	return out, nil
}
