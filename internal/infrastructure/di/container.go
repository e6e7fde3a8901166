package di

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	generationgateway "github.com/YoshitsuguKoike/rehearsal/internal/adapter/gateway/generation"
	scenegateway "github.com/YoshitsuguKoike/rehearsal/internal/adapter/gateway/scene"
	storagegateway "github.com/YoshitsuguKoike/rehearsal/internal/adapter/gateway/storage"
	"github.com/YoshitsuguKoike/rehearsal/internal/app"
	appconfig "github.com/YoshitsuguKoike/rehearsal/internal/app/config"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/input"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/service"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/usecase/rehearsal"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/repository"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/service/matcher"
	"github.com/YoshitsuguKoike/rehearsal/internal/infrastructure/persistence/sqlite"
	"github.com/YoshitsuguKoike/rehearsal/internal/infrastructure/repository/memory"
	"github.com/YoshitsuguKoike/rehearsal/internal/infrastructure/transaction"
)

// Container is the DI container that holds all dependencies
// This implements manual dependency injection for Clean Architecture
type Container struct {
	// Infrastructure Layer - Database (nil for the memory session store)
	db *sql.DB

	// Infrastructure Layer - Repositories
	sessionRepo repository.SessionRepository
	sceneRepo   *scenegateway.DocumentSceneRepository

	// Infrastructure Layer - Gateways
	storageGateway    output.DocumentStorageGateway
	generationGateway output.GenerationGateway // nil for the scripted generator

	// Infrastructure Layer - Transaction Manager
	txManager output.TransactionManager

	// Application Layer - Services
	limiter   *service.GenerationLimiter
	locks     *service.SessionLockManager
	responder *service.PersonaResponder
	coach     *service.CoachFeedbackGenerator

	// Application Layer - Use Cases
	rehearsalUseCase input.RehearsalUseCase

	config Config
	logger app.Logger
}

// Config holds configuration for the container
type Config struct {
	Settings appconfig.Config
	Logger   app.Logger

	// Overrides used by tests; nil means build from Settings
	Fs       afero.Fs
	S3Client storagegateway.S3API
}

// NewContainer creates and initializes the DI container
func NewContainer(ctx context.Context, config Config) (*Container, error) {
	if config.Settings == nil {
		return nil, fmt.Errorf("container settings are required")
	}
	c := &Container{
		config: config,
		logger: config.Logger,
	}
	if c.logger == nil {
		c.logger = app.GetLogger()
	}
	if c.config.Fs == nil {
		c.config.Fs = afero.NewOsFs()
	}

	// Initialize dependencies in dependency order
	if err := c.initializeInfrastructure(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	if err := c.initializeApplication(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}

	return c, nil
}

// initializeInfrastructure initializes infrastructure layer components
func (c *Container) initializeInfrastructure(ctx context.Context) error {
	s := c.config.Settings

	// 1. Session store
	switch s.SessionStore() {
	case "memory":
		c.sessionRepo = memory.NewSessionRepository()
		c.txManager = transaction.NewPassthroughTransactionManager()

	case "sqlite", "":
		dbPath := s.DBPath()
		if dbPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err := sqlite.Open(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open session database: %w", err)
		}
		c.db = db
		c.sessionRepo = sqlite.NewSessionRepository(db)
		c.txManager = transaction.NewSQLiteTransactionManager(db)

	default:
		return fmt.Errorf("unknown session store: %s", s.SessionStore())
	}

	// 2. Scene document storage
	switch s.SceneSource() {
	case "file", "":
		local, err := storagegateway.NewLocalStorageGateway(c.config.Fs, s.SceneDir())
		if err != nil {
			return fmt.Errorf("failed to create local scene storage: %w", err)
		}
		c.storageGateway = local

	case "s3":
		if s.S3Bucket() == "" {
			return fmt.Errorf("S3 bucket name is required for S3 scene source")
		}
		if c.config.S3Client != nil {
			c.storageGateway = storagegateway.NewS3StorageGatewayWithClient(c.config.S3Client, s.S3Bucket(), s.S3Prefix())
			break
		}
		s3Gateway, err := storagegateway.NewS3StorageGateway(ctx, storagegateway.S3Config{
			BucketName: s.S3Bucket(),
			Prefix:     s.S3Prefix(),
			Region:     s.S3Region(),
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 scene storage: %w", err)
		}
		c.storageGateway = s3Gateway

	default:
		return fmt.Errorf("unknown scene source: %s", s.SceneSource())
	}
	c.sceneRepo = scenegateway.NewDocumentSceneRepository(c.storageGateway, c.logger)

	// 3. Generation backend
	gateway, err := generationgateway.NewGenerationGateway(ctx, generationgateway.Config{
		Generator: s.Generator(),
		Model:     s.Model(),
		BaseURL:   s.BaseURL(),
	})
	if err != nil {
		return fmt.Errorf("failed to create generation gateway: %w", err)
	}
	c.generationGateway = gateway

	return nil
}

// initializeApplication initializes application layer components
func (c *Container) initializeApplication() error {
	s := c.config.Settings

	limiter, err := service.NewGenerationLimiter(s.MaxConcurrentGenerations())
	if err != nil {
		return fmt.Errorf("failed to create generation limiter: %w", err)
	}
	c.limiter = limiter
	c.locks = service.NewSessionLockManager()

	respCfg := service.DefaultPersonaResponderConfig()
	respCfg.Mode = service.ResponseMode(s.ResponseMode())
	respCfg.Timeout = s.GenerationTimeout()
	respCfg.Retries = s.GenerationRetries()
	c.responder = service.NewPersonaResponder(c.generationGateway, c.limiter, respCfg, c.logger)

	coachCfg := service.DefaultCoachConfig()
	coachCfg.Timeout = s.GenerationTimeout()
	coachCfg.Retries = min(s.GenerationRetries(), coachCfg.Retries)
	c.coach = service.NewCoachFeedbackGenerator(c.generationGateway, c.limiter, coachCfg, c.logger)

	c.rehearsalUseCase = rehearsal.NewRehearsalUseCase(
		c.sessionRepo,
		c.sceneRepo,
		c.txManager,
		c.locks,
		matcher.New(matcher.Config{OrderTolerance: s.OrderTolerance()}),
		c.responder,
		c.coach,
		rehearsal.Config{
			Defaults: scene.Rules{
				AcceptanceThreshold: s.AcceptanceThreshold(),
				MaxRetries:          s.MaxRetries(),
				HistoryWindow:       s.HistoryWindow(),
			},
			LockMode: service.LockMode(s.LockMode()),
		},
		c.logger,
	)

	return nil
}

// GetRehearsalUseCase returns the rehearsal use case
func (c *Container) GetRehearsalUseCase() input.RehearsalUseCase {
	return c.rehearsalUseCase
}

// GetSceneRepository returns the document-backed scene repository
func (c *Container) GetSceneRepository() *scenegateway.DocumentSceneRepository {
	return c.sceneRepo
}

// GetGenerationGateway returns the generation backend, or nil for the scripted generator
func (c *Container) GetGenerationGateway() output.GenerationGateway {
	return c.generationGateway
}

// GetGenerationLimiter returns the global generation limiter
func (c *Container) GetGenerationLimiter() *service.GenerationLimiter {
	return c.limiter
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		c.db = nil
	}
	return nil
}
