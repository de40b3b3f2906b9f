package web

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bloggera/bloggera/internal/category"
	"github.com/bloggera/bloggera/internal/compose"
	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/guard"
	"github.com/bloggera/bloggera/internal/resilience"
	"github.com/bloggera/bloggera/internal/toggle"
	"github.com/bloggera/bloggera/internal/views"
)

type credentialsRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type sessionResponse struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"profilePicture"`
}

func sessionBody(s *domain.Session) sessionResponse {
	return sessionResponse{UserID: s.UserID, Username: s.Username, Email: s.Email, AvatarURL: s.AvatarURL}
}

type toggleResponse struct {
	Active    bool   `json:"active"`
	Count     int    `json:"count"`
	Committed bool   `json:"committed"`
	Error     string `json:"error,omitempty"`
}

type breakerReporter interface {
	BreakerState() resilience.State
}

// handleHealth reports the companion as up; "degraded" means the API breaker is not closed.
func (s *Server) handleHealth(c echo.Context) error {
	body := map[string]string{"status": "ok"}
	if br, ok := s.opts.API.(breakerReporter); ok {
		state := br.BreakerState()
		body["api"] = state.String()
		if state != resilience.Closed {
			body["status"] = "degraded"
		}
	}
	return c.JSON(http.StatusOK, body)
}

func (s *Server) handleStart(c echo.Context) error {
	body := map[string]any{"loggedIn": false}
	if sess, ok := s.opts.Sessions.Current(); ok {
		body["loggedIn"] = true
		body["session"] = sessionBody(sess)
	}
	return c.JSON(http.StatusOK, body)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	sess, err := s.opts.Sessions.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionBody(sess))
}

func (s *Server) handleRegister(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	sess, err := s.opts.Sessions.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sessionBody(sess))
}

func (s *Server) handleLogout(c echo.Context) error {
	if err := s.opts.Sessions.Logout(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"redirect": s.opts.Guard.Landing()})
}

func (s *Server) handleSession(c echo.Context) error {
	sess, err := guard.SessionOf(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionBody(sess))
}

func (s *Server) homeFor(c echo.Context) (*views.Home, error) {
	sess, err := guard.SessionOf(c)
	if err != nil {
		return nil, err
	}
	home, _ := s.views(sess)
	return home, nil
}

func (s *Server) exploreFor(c echo.Context) (*views.Explore, error) {
	sess, err := guard.SessionOf(c)
	if err != nil {
		return nil, err
	}
	_, explore := s.views(sess)
	return explore, nil
}

func (s *Server) handleFeed(c echo.Context) error {
	home, err := s.homeFor(c)
	if err != nil {
		return err
	}
	snap := home.Snapshot()
	// An exhausted empty feed has been loaded already.
	if len(snap.Posts) == 0 && snap.CanLoadMore && snap.Error == nil && !snap.Loading {
		if _, err := home.Load(c.Request().Context()); err != nil {
			return err
		}
		snap = home.Snapshot()
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleFeedMore(c echo.Context) error {
	home, err := s.homeFor(c)
	if err != nil {
		return err
	}
	if _, err := home.More(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, home.Snapshot())
}

func (s *Server) handleFeedReload(c echo.Context) error {
	home, err := s.homeFor(c)
	if err != nil {
		return err
	}
	if _, err := home.Load(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, home.Snapshot())
}

type likeToggler interface {
	ToggleLike(ctx context.Context, postID string) (*toggle.Result, error)
}

func (s *Server) handleFeedLike(c echo.Context) error {
	home, err := s.homeFor(c)
	if err != nil {
		return err
	}
	return s.toggleLike(c, home)
}

func (s *Server) handleExploreLike(c echo.Context) error {
	explore, err := s.exploreFor(c)
	if err != nil {
		return err
	}
	return s.toggleLike(c, explore)
}

func (s *Server) toggleLike(c echo.Context, v likeToggler) error {
	ctx := c.Request().Context()
	res, err := v.ToggleLike(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return settle(ctx, c, res)
}

// settle waits for a toggle request and reports where the state ended up. A rolled back
// toggle is a 200 carrying the restored state and the reason.
func settle(ctx context.Context, c echo.Context, res *toggle.Result) error {
	state, err := res.Wait(ctx)
	body := toggleResponse{Active: state.Active, Count: state.Count, Committed: err == nil}
	if err != nil {
		_, detail := mapError(err)
		body.Error = detail.Message
	}
	return c.JSON(http.StatusOK, body)
}

func (s *Server) handleCategories(c echo.Context) error {
	cats, err := s.opts.Categories.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cats)
}

func (s *Server) handleExplore(c echo.Context) error {
	explore, err := s.exploreFor(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, explore.Snapshot())
}

func (s *Server) handleExploreSuggestions(c echo.Context) error {
	explore, err := s.exploreFor(c)
	if err != nil {
		return err
	}
	sugg, err := explore.Suggestions(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	if sugg == nil {
		sugg = []domain.Category{}
	}
	return c.JSON(http.StatusOK, sugg)
}

type searchRequest struct {
	Categories []string `json:"categories"`
	Text       string   `json:"text"`
}

func (s *Server) handleExploreSearch(c echo.Context) error {
	explore, err := s.exploreFor(c)
	if err != nil {
		return err
	}
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}

	ctx := c.Request().Context()
	var selected []domain.Category
	if len(req.Categories) > 0 {
		all, err := s.opts.Categories.List(ctx)
		if err != nil {
			return err
		}
		var missing []string
		selected, missing = category.Resolve(all, req.Categories)
		if len(missing) > 0 {
			return domain.NewValidationError("categories", "unknown category: "+strings.Join(missing, ", "))
		}
	}

	for _, cat := range explore.Selected() {
		explore.RemoveCategory(cat.ID)
	}
	for _, cat := range selected {
		explore.AddCategory(cat)
	}
	explore.SetText(req.Text)

	if _, err := explore.Search(ctx); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, explore.Snapshot())
}

func (s *Server) handleExploreMore(c echo.Context) error {
	explore, err := s.exploreFor(c)
	if err != nil {
		return err
	}
	if _, err := explore.More(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, explore.Snapshot())
}

func (s *Server) loadPost(c echo.Context) (*views.Post, error) {
	v := views.NewPost(s.opts.API, c.Param("id"), s.logger)
	if err := v.Load(c.Request().Context()); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Server) handlePost(c echo.Context) error {
	v, err := s.loadPost(c)
	if err != nil {
		return err
	}
	s.reconcile(c.Request().Context(), v)
	return c.JSON(http.StatusOK, v.Snapshot())
}

func (s *Server) handlePostLike(c echo.Context) error {
	v, err := s.loadPost(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	res, err := v.ToggleLike(ctx)
	if err != nil {
		return err
	}
	state, err := res.Wait(ctx)
	if err != nil {
		return settle(ctx, c, res)
	}

	s.reconcile(ctx, v)
	if d, ok := v.Detail(); ok {
		state = toggle.State{Active: d.ViewerHasLiked, Count: d.LikeCount}
	}
	return c.JSON(http.StatusOK, toggleResponse{Active: state.Active, Count: state.Count, Committed: true})
}

// reconcile refreshes the like state from the server. A failure keeps the loaded state.
func (s *Server) reconcile(ctx context.Context, v *views.Post) {
	if err := v.Reconcile(ctx); err != nil {
		s.logger.WarnContext(ctx, "like status check failed", "error", err)
	}
}

type commentRequest struct {
	Text string `json:"text" form:"text"`
}

func (s *Server) handlePostComment(c echo.Context) error {
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	if strings.TrimSpace(req.Text) == "" {
		return domain.NewValidationError("comment", "comment cannot be empty")
	}

	v, err := s.loadPost(c)
	if err != nil {
		return err
	}
	if _, err := v.AddComment(c.Request().Context(), req.Text); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, v.Snapshot())
}

func (s *Server) handleWrite(c echo.Context) error {
	ctx := c.Request().Context()

	composer, err := compose.New(s.opts.API, compose.Options{
		MaxImageBytes: s.opts.MaxImageBytes,
		Suggester:     s.opts.Categories,
		Logger:        s.logger,
	})
	if err != nil {
		return err
	}

	composer.SetTitle(c.FormValue("title"))
	composer.SetContent(c.FormValue("content"))

	if refs := formValues(c, "category"); len(refs) > 0 {
		all, err := s.opts.Categories.List(ctx)
		if err != nil {
			return err
		}
		found, missing := category.Resolve(all, refs)
		if len(missing) > 0 {
			return domain.NewValidationError("category", "unknown category: "+strings.Join(missing, ", "))
		}
		for _, cat := range found {
			composer.AddCategory(cat)
		}
	}

	if fh, err := c.FormFile("postImage"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(io.LimitReader(f, s.maxImageBytes()+1))
		f.Close()
		if err != nil {
			return err
		}
		ct := fh.Header.Get(echo.HeaderContentType)
		if strings.HasPrefix(ct, echo.MIMEOctetStream) {
			ct = ""
		}
		composer.SetImage(&compose.Image{FileName: fh.Filename, ContentType: ct, Data: data})
	}

	postID, err := composer.Submit(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"postId": postID})
}

func (s *Server) maxImageBytes() int64 {
	if s.opts.MaxImageBytes > 0 {
		return s.opts.MaxImageBytes
	}
	return compose.DefaultMaxImageBytes
}

func formValues(c echo.Context, key string) []string {
	form, err := c.FormParams()
	if err != nil {
		return nil
	}
	return form[key]
}

func (s *Server) profileFor(c echo.Context) (*views.Profile, error) {
	sess, err := guard.SessionOf(c)
	if err != nil {
		return nil, err
	}
	email, err := url.PathUnescape(c.Param("email"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "malformed email")
	}
	return views.NewProfile(s.opts.API, sess, email, s.logger), nil
}

func (s *Server) handleProfile(c echo.Context) error {
	v, err := s.profileFor(c)
	if err != nil {
		return err
	}
	if err := v.Load(c.Request().Context()); err != nil && v.Status() != views.StatusNotFound {
		return err
	}
	status := http.StatusOK
	if v.Status() == views.StatusNotFound {
		status = http.StatusNotFound
	}
	return c.JSON(status, v.Snapshot())
}

func (s *Server) handleFollow(c echo.Context) error {
	v, err := s.profileFor(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := v.Load(ctx); err != nil {
		return err
	}
	res, err := v.ToggleFollow(ctx)
	if err != nil {
		return err
	}
	return settle(ctx, c, res)
}
