package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/khrees2412/applytrack/internal/ai"
	"github.com/khrees2412/applytrack/internal/auth"
	"github.com/khrees2412/applytrack/internal/blob"
	"github.com/khrees2412/applytrack/internal/config"
	"github.com/khrees2412/applytrack/internal/database"
	"github.com/khrees2412/applytrack/internal/gateway"
	"github.com/khrees2412/applytrack/internal/localstate"
	"github.com/khrees2412/applytrack/pkg/models"
)

// App is the dependency container for the CLI application
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      database.Store
	Blobs      *blob.LocalStore
	Tokens     *auth.TokenProvider
	Policy     *auth.ListPolicy
	Session    *auth.Session
	RawProfile *localstate.RawProfile
	HTTPClient *http.Client

	Applications *gateway.Collection[models.Application]
	CVs          *gateway.Collection[models.CV]
	Profiles     *gateway.Collection[models.MasterProfile]
	Letters      *gateway.Collection[models.CoverLetter]
	Outputs      *gateway.Collection[models.AIOutput]

	// ctx bounds every live subscription the App opens
	ctx    context.Context
	cancel context.CancelFunc

	assistant    *ai.Facade
	assistantErr error
}

// NewApp initializes and returns a new App instance from ~/.applytrack
func NewApp(ctx context.Context) (*App, error) {
	// Initialize config
	if err := config.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}

	logger := NewLogger(LogConfig{Level: config.AppConfig.LogLevel, Format: config.AppConfig.LogFormat}, nil)

	a, err := New(ctx, config.AppConfig, logger)
	if err != nil {
		return nil, err
	}

	// Allow-list edits take effect without a restart
	auth.WatchConfig(config.Viper(), config.AllowedEmailsKey, a.Policy, logger)
	return a, nil
}

// New wires an App from an already loaded configuration
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	blobs, err := blob.NewLocalStore(filepath.Join(cfg.DataDir, "blobs"), logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize blob storage: %w", err)
	}

	// Create HTTP client with timeout; model calls can be slow
	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
	}

	tokens := auth.NewTokenProvider(cfg.AuthSecret, filepath.Join(cfg.DataDir, "session"))
	policy := auth.NewListPolicy(cfg.AllowedEmails)

	actx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a := &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Blobs:      blobs,
		Tokens:     tokens,
		Policy:     policy,
		Session:    auth.NewSession(tokens, policy, logger),
		RawProfile: localstate.NewRawProfile(cfg.DataDir),
		HTTPClient: httpClient,

		Applications: gateway.New[models.Application](store, models.CollectionApplications, logger),
		CVs:          gateway.New[models.CV](store, models.CollectionCVs, logger),
		Profiles:     gateway.New[models.MasterProfile](store, models.CollectionMasterProfiles, logger),
		Letters:      gateway.New[models.CoverLetter](store, models.CollectionCoverLetters, logger),
		Outputs:      gateway.New[models.AIOutput](store, models.CollectionAIOutputs, logger),

		ctx:    actx,
		cancel: cancel,
	}

	// Every collection follows the signed-in user
	a.Session.OnChange(func(id *auth.Identity) {
		user := ""
		if id != nil {
			user = id.ID
		}
		a.bindAll(user)
	})

	model, err := ai.NewModel(ai.ModelConfig{
		Provider:     cfg.AIProvider,
		Model:        cfg.DefaultModel,
		GeminiKey:    cfg.GeminiKey,
		OpenAIKey:    cfg.OpenAIKey,
		AnthropicKey: cfg.AnthropicKey,
		OllamaURL:    cfg.OllamaURL,
		LMStudioURL:  cfg.LMStudioURL,
	}, httpClient)
	if err != nil {
		// Reported by Assistant so config commands still work
		a.assistantErr = err
	} else {
		a.assistant = ai.NewFacade(model, logger)
	}

	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*database.SQLStore, error) {
	driver := cfg.StoreDriver
	if driver == "" {
		driver = database.DriverSQLite
	}
	dsn := cfg.DatabaseURL
	if driver == database.DriverSQLite && dsn == "" {
		dsn = filepath.Join(cfg.DataDir, "applytrack.db")
	}
	return database.Open(ctx, database.Options{Driver: driver, DSN: dsn, Log: logger})
}

// Assistant returns the AI facade for the configured provider
func (a *App) Assistant() (*ai.Facade, error) {
	if a.assistantErr != nil {
		return nil, a.assistantErr
	}
	return a.assistant, nil
}

// SignIn restores the stored session and binds every collection to it
func (a *App) SignIn(ctx context.Context) (*auth.Identity, error) {
	if id := a.Session.Current(); id != nil {
		return id, nil
	}
	return a.Session.SignIn(ctx)
}

func (a *App) bindAll(user string) {
	for _, c := range []interface {
		SetUser(ctx context.Context, user string) error
	}{a.Applications, a.CVs, a.Profiles, a.Letters, a.Outputs} {
		if err := c.SetUser(a.ctx, user); err != nil {
			a.Logger.Error("bind collection", slog.String("error", err.Error()))
		}
	}
}

// Close closes all resources
func (a *App) Close() error {
	a.cancel()
	for _, c := range []interface{ Close() }{a.Applications, a.CVs, a.Profiles, a.Letters, a.Outputs} {
		c.Close()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
