package guard

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bloggera/bloggera/internal/domain"
)

// ContextKey is the echo context key holding the allowed session.
const ContextKey = "session"

// Require returns the current session or domain.ErrNoSession.
func (g *Guard) Require(ctx context.Context) (*domain.Session, error) {
	d := g.Resolve(ctx)
	if d.Outcome != Allow {
		return nil, domain.ErrNoSession
	}
	return d.Session, nil
}

// Middleware rejects requests made without a session. Browsers are redirected to the
// landing view. For API clients it returns domain.ErrNoSession and leaves the body to
// the server's error handler.
func (g *Guard) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			d := g.Resolve(req.Context())

			if d.Outcome == Allow {
				c.Set(ContextKey, d.Session)
				c.SetRequest(req.WithContext(domain.WithSession(req.Context(), d.Session)))
				return next(c)
			}

			g.logger.DebugContext(req.Context(), "guarded route without session", "path", req.URL.Path)
			if wantsHTML(req) {
				return c.Redirect(http.StatusSeeOther, d.Location)
			}
			return domain.ErrNoSession
		}
	}
}

// SessionOf returns the session stored by Middleware.
func SessionOf(c echo.Context) (*domain.Session, error) {
	if sess, ok := c.Get(ContextKey).(*domain.Session); ok && sess.IsValid() {
		return sess, nil
	}
	return domain.SessionFrom(c.Request().Context())
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMETextHTML) && !strings.Contains(accept, echo.MIMEApplicationJSON)
}
