package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bloggera/bloggera/internal/apiclient"
	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/metrics"
	"github.com/bloggera/bloggera/internal/validation"
)

const logoutNotifyTimeout = 5 * time.Second

// Authenticator is the auth collaborator, satisfied by *apiclient.Client.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*domain.Session, error)
	Register(ctx context.Context, username, password string) (*domain.UserProfile, error)
	Logout(ctx context.Context, token string) error
}

// Credentials is the login and register form.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// Service implements login, register and logout on top of a Store.
type Service struct {
	store     *Store
	auth      Authenticator
	validator *validation.Validator
	logger    *slog.Logger
}

// NewService wires a Store to the auth collaborator.
func NewService(store *Store, auth Authenticator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		auth:      auth,
		validator: validation.New(),
		logger:    logger.With("component", "session"),
	}
}

// Store returns the underlying store.
func (s *Service) Store() *Store {
	return s.store
}

// Current returns the session, if any.
func (s *Service) Current() (*domain.Session, bool) {
	return s.store.Current()
}

// Require returns the session or domain.ErrNoSession.
func (s *Service) Require() (*domain.Session, error) {
	sess, ok := s.store.Current()
	if !ok {
		return nil, domain.ErrNoSession
	}
	return sess, nil
}

// Subscribe registers fn for session changes.
func (s *Service) Subscribe(fn Listener) func() {
	return s.store.Subscribe(fn)
}

// Login validates the form, authenticates and persists the session.
// Failures from the server come back as *domain.AuthError.
func (s *Service) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	creds := Credentials{Username: strings.TrimSpace(username), Password: password}
	if err := s.validator.Validate(creds); err != nil {
		return nil, err
	}

	sess, err := s.auth.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		s.logger.WarnContext(ctx, "login failed", "username", creds.Username, "error", err)
		return nil, authError("Login failed", err)
	}

	if err := s.store.Set(sess); err != nil {
		return nil, err
	}
	metrics.RecordSessionEvent("login")
	s.logger.InfoContext(ctx, "logged in", "user_id", sess.UserID)
	return sess.Clone(), nil
}

// Register creates the account, then logs in with the same credentials.
func (s *Service) Register(ctx context.Context, username, password string) (*domain.Session, error) {
	creds := Credentials{Username: strings.TrimSpace(username), Password: password}
	if err := s.validator.Validate(creds); err != nil {
		return nil, err
	}

	if _, err := s.auth.Register(ctx, creds.Username, creds.Password); err != nil {
		s.logger.WarnContext(ctx, "registration failed", "username", creds.Username, "error", err)
		return nil, authError("Registration failed", err)
	}
	metrics.RecordSessionEvent("register")

	return s.Login(ctx, creds.Username, creds.Password)
}

// Logout clears the session, then tells the server. Only a local failure is returned.
func (s *Service) Logout(ctx context.Context) error {
	sess, had := s.store.Current()

	clearErr := s.store.Clear()
	if clearErr != nil {
		s.logger.ErrorContext(ctx, "clearing session failed", "error", clearErr)
	}
	metrics.RecordSessionEvent("logout")

	if had {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutNotifyTimeout)
		defer cancel()
		if err := s.auth.Logout(notifyCtx, sess.Token); err != nil {
			s.logger.WarnContext(ctx, "server logout failed", "error", err)
		}
	}
	return clearErr
}

func authError(prefix string, err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return err
	}

	msg := apiclient.MessageOf(err)
	switch {
	case errors.Is(err, domain.ErrNetwork):
		msg = "Unable to reach Bloggera, please try again"
	case errors.Is(err, domain.ErrAuth):
		// server message as is
	default:
		msg = fmt.Sprintf("%s: %s", prefix, msg)
	}
	return &domain.AuthError{Message: msg, Err: err}
}
