// Package app wires the bloggera client together from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/bloggera/bloggera/internal/apiclient"
	"github.com/bloggera/bloggera/internal/category"
	"github.com/bloggera/bloggera/internal/compose"
	"github.com/bloggera/bloggera/internal/config"
	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/guard"
	"github.com/bloggera/bloggera/internal/logger"
	"github.com/bloggera/bloggera/internal/resilience"
	"github.com/bloggera/bloggera/internal/session"
	"github.com/bloggera/bloggera/internal/telemetry"
	"github.com/bloggera/bloggera/internal/views"
	"github.com/bloggera/bloggera/internal/web"
)

const serviceName = "bloggera"

// Options tunes New beyond what the configuration covers.
type Options struct {
	Version   string
	LogOutput io.Writer         // defaults to os.Stderr
	Transport http.RoundTripper // overrides the API client's transport
}

// App holds the long-lived components shared by every command.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      *session.Store
	Client     *apiclient.Client
	Sessions   *session.Service
	Guard      *guard.Guard
	Categories *category.Cache

	shutdownTracing telemetry.ShutdownFunc
}

// New builds the application from cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}

	log := logger.New(opts.LogOutput, logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: opts.Version,
		Endpoint:       cfg.Tracing.Endpoint,
		Enabled:        cfg.Tracing.Enabled,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	store := session.NewStore(session.NewFileStorage(cfg.Session.Path), log)

	client := apiclient.New(apiclient.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
		Breaker: resilience.Config{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			SuccessThreshold: cfg.Breaker.SuccessThreshold,
			OpenTimeout:      cfg.Breaker.OpenTimeout,
		},
		Logger:    log,
		Transport: opts.Transport,
	}, store)

	log.Debug("application initialized",
		"api", cfg.API.BaseURL,
		"session_path", cfg.Session.Path,
		"tracing", cfg.Tracing.Enabled,
	)

	sessions := session.NewService(store, client, log)
	return &App{
		Config:          cfg,
		Logger:          log,
		Store:           store,
		Client:          client,
		Sessions:        sessions,
		Guard:           guard.New(sessions, guard.Landing, log),
		Categories:      category.NewCache(client, cfg.Cache.Size, cfg.Cache.CategoriesTTL),
		shutdownTracing: shutdown,
	}, nil
}

// Close flushes pending spans.
func (a *App) Close(ctx context.Context) error {
	if a.shutdownTracing == nil {
		return nil
	}
	return a.shutdownTracing(ctx)
}

// RequireSession resolves the route guard for a protected operation.
func (a *App) RequireSession(ctx context.Context) (*domain.Session, error) {
	return a.Guard.Require(ctx)
}

func (a *App) feedOptions() views.FeedOptions {
	return views.FeedOptions{MaxExcluded: a.Config.Feed.MaxExcluded, Logger: a.Logger}
}

// Home creates the home feed view.
func (a *App) Home() *views.Home {
	return views.NewHome(a.Client, a.feedOptions())
}

// Explore creates the explore view.
func (a *App) Explore() *views.Explore {
	return views.NewExplore(a.Client, a.Categories, views.ExploreOptions{
		FeedOptions: a.feedOptions(),
		Sample:      a.Config.Feed.Sample,
	})
}

// Post creates the detail view for postID.
func (a *App) Post(postID string) *views.Post {
	return views.NewPost(a.Client, postID, a.Logger)
}

// Profile creates the profile view of email as seen by viewer. An empty email is the viewer's own.
func (a *App) Profile(viewer *domain.Session, email string) *views.Profile {
	return views.NewProfile(a.Client, viewer, email, a.Logger)
}

// Composer creates an empty post draft.
func (a *App) Composer() (*compose.Composer, error) {
	return compose.New(a.Client, compose.Options{
		MaxImageBytes: a.Config.Compose.MaxImageBytes,
		Suggester:     a.Categories,
		Logger:        a.Logger,
	})
}

// WebServer creates the local web companion.
func (a *App) WebServer() *web.Server {
	return web.New(web.Options{
		API:           a.Client,
		Sessions:      a.Sessions,
		Guard:         a.Guard,
		Categories:    a.Categories,
		Feed:          a.feedOptions(),
		SearchSample:  a.Config.Feed.Sample,
		MaxImageBytes: a.Config.Compose.MaxImageBytes,
		Tracing:       a.Config.Tracing.Enabled,
		Logger:        a.Logger,
	})
}
