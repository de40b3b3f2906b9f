// Package web serves the Bloggera views as JSON for a local browser companion.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/bloggera/bloggera/internal/compose"
	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/guard"
	"github.com/bloggera/bloggera/internal/views"
)

// API is everything the views need from the Bloggera backend.
type API interface {
	views.HomeAPI
	views.ExploreAPI
	views.PostAPI
	views.ProfileAPI
	compose.Poster
}

// Sessions is the session service as seen by the web layer.
type Sessions interface {
	Current() (*domain.Session, bool)
	Login(ctx context.Context, username, password string) (*domain.Session, error)
	Register(ctx context.Context, username, password string) (*domain.Session, error)
	Logout(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	API        API
	Sessions   Sessions
	Guard      *guard.Guard
	Categories views.CategorySource

	Feed          views.FeedOptions
	SearchSample  int
	MaxImageBytes int64

	Tracing bool
	Logger  *slog.Logger
}

// Server is the web companion. It keeps one home and one explore view for the logged-in
// user, mounted under the guard, and discards them on logout or a user switch.
type Server struct {
	echo   *echo.Echo
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	owner   string
	home    *views.Home
	explore *views.Explore
	mounted *guard.Mounted
}

// New builds the server and its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Feed.Logger == nil {
		opts.Feed.Logger = opts.Logger
	}

	s := &Server{opts: opts, logger: opts.Logger.With("component", "web")}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(s.logger)

	if opts.Tracing {
		e.Use(otelecho.Middleware("bloggera"))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/healthz" || path == "/metrics"
		},
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			if v.Error == nil {
				s.logger.InfoContext(ctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				s.logger.WarnContext(ctx, "request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(securityHeaders())

	s.routes(e)
	s.echo = e
	return s
}

func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "same-origin")
			h.Set("Cache-Control", "no-store")
			return next(c)
		}
	}
}

func (s *Server) routes(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET(guard.Landing, s.handleStart)
	e.POST("/auth/login", s.handleLogin)
	e.POST("/auth/register", s.handleRegister)
	e.POST("/auth/logout", s.handleLogout)

	g := e.Group("", s.opts.Guard.Middleware())
	g.GET("/session", s.handleSession)

	g.GET("/feed", s.handleFeed)
	g.POST("/feed/more", s.handleFeedMore)
	g.POST("/feed/reload", s.handleFeedReload)
	g.POST("/feed/posts/:id/like", s.handleFeedLike)

	g.GET("/categories", s.handleCategories)
	g.GET("/explore", s.handleExplore)
	g.GET("/explore/suggestions", s.handleExploreSuggestions)
	g.POST("/explore/search", s.handleExploreSearch)
	g.POST("/explore/more", s.handleExploreMore)
	g.POST("/explore/posts/:id/like", s.handleExploreLike)

	g.GET("/posts/:id", s.handlePost)
	g.POST("/posts/:id/like", s.handlePostLike)
	g.POST("/posts/:id/comments", s.handlePostComment)

	g.POST("/write", s.handleWrite)

	g.GET("/profile", s.handleProfile)
	g.GET("/profile/:email", s.handleProfile)
	g.POST("/profile/:email/follow", s.handleFollow)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("web companion listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes open views and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.unmount()
	s.dropViews()
	return s.echo.Shutdown(ctx)
}

// dropViews closes the cached views, aborting their in-flight loads.
func (s *Server) dropViews() {
	s.mu.Lock()
	home, explore := s.home, s.explore
	s.home, s.explore, s.owner = nil, nil, ""
	s.mu.Unlock()

	if home != nil {
		home.Close()
	}
	if explore != nil {
		explore.Close()
	}
}

// sessionViews is the guarded view standing for the cached views.
type sessionViews struct{ s *Server }

func (v sessionViews) Render(_ context.Context, sess *domain.Session) {
	v.s.mu.Lock()
	stale := v.s.owner != "" && v.s.owner != sess.UserID
	v.s.mu.Unlock()
	if stale {
		v.s.dropViews()
	}
}

func (v sessionViews) Redirect(context.Context, string) {
	v.s.dropViews()
}

// mount puts the cached views under guard supervision unless a live mount exists.
// A logout ends the mount; the next guarded request mounts again.
func (s *Server) mount() {
	s.mu.Lock()
	current := s.mounted
	s.mu.Unlock()
	if current != nil {
		select {
		case <-current.Done():
		default:
			return
		}
	}

	m := s.opts.Guard.Mount(context.Background(), sessionViews{s})

	s.mu.Lock()
	if s.mounted != current {
		s.mu.Unlock()
		m.Unmount()
		return
	}
	s.mounted = m
	s.mu.Unlock()
}

func (s *Server) unmount() {
	s.mu.Lock()
	m := s.mounted
	s.mounted = nil
	s.mu.Unlock()
	if m != nil {
		m.Unmount()
	}
}

// views returns the cached views for sess, replacing them if another user owns them.
func (s *Server) views(sess *domain.Session) (*views.Home, *views.Explore) {
	s.mount()

	s.mu.Lock()
	if s.owner != "" && s.owner != sess.UserID {
		s.mu.Unlock()
		s.dropViews()
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	if s.home == nil {
		s.home = views.NewHome(s.opts.API, s.opts.Feed)
	}
	if s.explore == nil {
		s.explore = views.NewExplore(s.opts.API, s.opts.Categories, views.ExploreOptions{
			FeedOptions: s.opts.Feed,
			Sample:      s.opts.SearchSample,
		})
	}
	s.owner = sess.UserID
	return s.home, s.explore
}
