// Package testutil provides an in-memory Bloggera API for tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bloggera/bloggera/internal/domain"
)

// MockResponse overrides the answer for one path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockRequest is a recorded request.
type MockRequest struct {
	Method    string
	Path      string
	Headers   http.Header
	Body      []byte
	Timestamp time.Time
}

// JSON decodes the recorded body into v.
func (r MockRequest) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

type mockUser struct {
	id       string
	username string
	password string
	email    string
	avatar   string
	bio      string
}

type mockPost struct {
	summary    domain.PostSummary
	categories []string // names
	comments   []domain.Comment
	image      []byte
}

// MockBloggeraServer is an httptest server implementing the Bloggera REST API in memory.
type MockBloggeraServer struct {
	server *httptest.Server

	mu               sync.RWMutex
	users            map[string]*mockUser // by username
	tokens           map[string]string    // token -> user id
	posts            []*mockPost
	categories       []domain.Category
	likes            map[string]map[string]bool // post id -> user ids
	follows          map[string]map[string]bool // follower -> followed
	responses        map[string]MockResponse
	requestLog       []MockRequest
	pageSize         int
	ignoreExclusions bool
	tokenInHeader    bool
	delay            time.Duration
	seq              int
}

// NewMockBloggeraServer starts a server seeded with two users and four categories.
func NewMockBloggeraServer() *MockBloggeraServer {
	m := &MockBloggeraServer{
		users:     make(map[string]*mockUser),
		tokens:    make(map[string]string),
		likes:     make(map[string]map[string]bool),
		follows:   make(map[string]map[string]bool),
		responses: make(map[string]MockResponse),
		pageSize:  30,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/users/register", m.handleRegister)
	mux.HandleFunc("POST /auth/users/login", m.handleLogin)
	mux.HandleFunc("POST /auth/users/logout", m.handleLogout)
	mux.HandleFunc("POST /api/category/list", m.authed(m.handleCategories))
	mux.HandleFunc("POST /api/posts/cardDetails", m.authed(m.handleCardDetails))
	mux.HandleFunc("POST /api/posts/fullPostDetails", m.authed(m.handleFullPostDetails))
	mux.HandleFunc("POST /api/posts/addPost", m.authed(m.handleAddPost))
	mux.HandleFunc("POST /api/posts/search", m.authed(m.handleSearch))
	mux.HandleFunc("POST /api/like/addlike", m.authed(m.handleLike(true)))
	mux.HandleFunc("POST /api/like/removelike", m.authed(m.handleLike(false)))
	mux.HandleFunc("POST /api/like/likeStatus", m.authed(m.handleLikeStatus))
	mux.HandleFunc("POST /api/like/getCount", m.authed(m.handleLikeCount))
	mux.HandleFunc("POST /api/follow/add", m.authed(m.handleFollow(true)))
	mux.HandleFunc("POST /api/follow/remove", m.authed(m.handleFollow(false)))
	mux.HandleFunc("POST /api/follow/status", m.authed(m.handleFollowStatus))
	mux.HandleFunc("POST /api/users/userdetails", m.authed(m.handleUserDetails))
	mux.HandleFunc("POST /api/comment/add", m.authed(m.handleAddComment))

	m.server = httptest.NewServer(m.record(mux))
	m.setupDefaultData()
	return m
}

// Close shuts the server down.
func (m *MockBloggeraServer) Close() {
	m.server.Close()
}

// URL returns the server's base URL.
func (m *MockBloggeraServer) URL() string {
	return m.server.URL
}

func (m *MockBloggeraServer) setupDefaultData() {
	m.categories = []domain.Category{
		{ID: "1", Name: "Travel", Description: "Trips and places"},
		{ID: "2", Name: "Tech", Description: "Software and gadgets"},
		{ID: "3", Name: "Travel Tips"},
		{ID: "4", Name: "Food"},
	}
	m.users["alice"] = &mockUser{id: "u1", username: "alice", password: "secret1", email: "alice@example.com", avatar: "https://img.example/alice.png", bio: "Writes about travel"}
	m.users["bob"] = &mockUser{id: "u2", username: "bob", password: "secret2", email: "bob@example.com", avatar: "https://img.example/bob.png"}
}

// SetResponse forces the answer for path, bypassing the in-memory API.
func (m *MockBloggeraServer) SetResponse(path string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = resp
}

// ClearResponse removes an override set by SetResponse.
func (m *MockBloggeraServer) ClearResponse(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.responses, path)
}

// SetPageSize sets how many posts a feed page returns.
func (m *MockBloggeraServer) SetPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSize = n
}

// SetIgnoreExclusions makes feed endpoints disregard excludedIds, like a misbehaving backend.
func (m *MockBloggeraServer) SetIgnoreExclusions(ignore bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignoreExclusions = ignore
}

// SetTokenInHeader makes login return the token as an Authorization header instead of in the body.
func (m *MockBloggeraServer) SetTokenInHeader(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenInHeader = v
}

// SetDelay delays every response.
func (m *MockBloggeraServer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// AddUser registers a user directly and returns its id.
func (m *MockBloggeraServer) AddUser(username, password, email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addUserLocked(username, password, email).id
}

func (m *MockBloggeraServer) addUserLocked(username, password, email string) *mockUser {
	m.seq++
	u := &mockUser{id: fmt.Sprintf("u%d", 100+m.seq), username: username, password: password, email: email}
	m.users[username] = u
	return u
}

// IssueToken returns a valid token for username without a login request.
func (m *MockBloggeraServer) IssueToken(username string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return ""
	}
	return m.issueTokenLocked(u)
}

func (m *MockBloggeraServer) issueTokenLocked(u *mockUser) string {
	m.seq++
	token := fmt.Sprintf("tok-%s-%d", u.id, m.seq)
	m.tokens[token] = u.id
	return token
}

// SessionFor returns a session for username as if it had logged in.
func (m *MockBloggeraServer) SessionFor(username string) *domain.Session {
	token := m.IssueToken(username)
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil
	}
	return &domain.Session{UserID: u.id, Username: u.username, Email: u.email, AvatarURL: u.avatar, Token: token}
}

// AddPost stores a post by username and returns its id.
func (m *MockBloggeraServer) AddPost(username, title, content string, categories ...string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[username]
	return m.addPostLocked(u, title, content, categories, "")
}

func (m *MockBloggeraServer) addPostLocked(u *mockUser, title, content string, categories []string, image string) string {
	m.seq++
	id := fmt.Sprintf("p%d", m.seq)
	p := &mockPost{
		summary: domain.PostSummary{
			PostID:      id,
			Title:       title,
			HTMLContent: content,
			ImageURL:    image,
			CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Minute),
		},
		categories: categories,
	}
	if u != nil {
		p.summary.AuthorUserID = u.id
		p.summary.AuthorUsername = u.username
		p.summary.AuthorEmail = u.email
		p.summary.AuthorAvatarURL = u.avatar
	}
	m.posts = append(m.posts, p)
	return id
}

// SeedPosts stores n posts by alice, alternating Travel and Tech, and returns their ids.
func (m *MockBloggeraServer) SeedPosts(n int) []string {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		category := "Travel"
		if i%2 == 1 {
			category = "Tech"
		}
		ids = append(ids, m.AddPost("alice", fmt.Sprintf("Post %d", i+1), fmt.Sprintf("<p>Body of post %d</p>", i+1), category))
	}
	return ids
}

// Follow records that follower follows followed, by username.
func (m *MockBloggeraServer) Follow(follower, followed string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, b := m.users[follower], m.users[followed]
	if a == nil || b == nil {
		return
	}
	if m.follows[a.id] == nil {
		m.follows[a.id] = make(map[string]bool)
	}
	m.follows[a.id][b.id] = true
}

// IsLiked reports whether userID likes postID.
func (m *MockBloggeraServer) IsLiked(postID, userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.likes[postID][userID]
}

// IsFollowing reports whether followerID follows followedID.
func (m *MockBloggeraServer) IsFollowing(followerID, followedID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.follows[followerID][followedID]
}

// PostCategories returns the category names stored for postID.
func (m *MockBloggeraServer) PostCategories(postID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p := m.findPostLocked(postID); p != nil {
		return slices.Clone(p.categories)
	}
	return nil
}

// PostImage returns the image bytes stored for postID.
func (m *MockBloggeraServer) PostImage(postID string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p := m.findPostLocked(postID); p != nil {
		return p.image
	}
	return nil
}

// RequestLog returns every recorded request.
func (m *MockBloggeraServer) RequestLog() []MockRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.requestLog)
}

// Requests returns the recorded requests for path.
func (m *MockBloggeraServer) Requests(path string) []MockRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []MockRequest
	for _, r := range m.requestLog {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// RequestCount returns the number of requests received.
func (m *MockBloggeraServer) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requestLog)
}

// ClearRequestLog forgets recorded requests.
func (m *MockBloggeraServer) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = nil
}

func (m *MockBloggeraServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		m.mu.Lock()
		m.requestLog = append(m.requestLog, MockRequest{
			Method:    r.Method,
			Path:      r.URL.Path,
			Headers:   r.Header.Clone(),
			Body:      body,
			Timestamp: time.Now(),
		})
		override, overridden := m.responses[r.URL.Path]
		delay := m.delay
		m.mu.Unlock()

		if overridden && override.Delay > 0 {
			delay = override.Delay
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("X-Request-Id", r.Header.Get("X-Request-Id"))

		if overridden {
			for k, v := range override.Headers {
				w.Header().Set(k, v)
			}
			if w.Header().Get("Content-Type") == "" {
				w.Header().Set("Content-Type", "application/json")
			}
			w.WriteHeader(override.StatusCode)
			_, _ = w.Write([]byte(override.Body))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// authed rejects requests without a known Bearer token.
func (m *MockBloggeraServer) authed(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		m.mu.RLock()
		userID, ok := m.tokens[token]
		m.mu.RUnlock()
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		next(w, r, userID)
	}
}

func (m *MockBloggeraServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" || body.Password == "" {
		writeMessage(w, http.StatusBadRequest, "username and password are required")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[body.Username]; exists {
		writeMessage(w, http.StatusBadRequest, "Username already taken")
		return
	}
	u := m.addUserLocked(body.Username, body.Password, body.Username+"@example.com")
	writeJSON(w, http.StatusCreated, map[string]string{
		"userId":   u.id,
		"username": u.username,
		"email":    u.email,
	})
}

func (m *MockBloggeraServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed body")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[body.Username]
	if !ok || u.password != body.Password {
		writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token := m.issueTokenLocked(u)
	resp := map[string]any{
		"user": map[string]string{
			"userId":         u.id,
			"username":       u.username,
			"profilePicture": u.avatar,
			"email":          u.email,
		},
	}
	if m.tokenInHeader {
		w.Header().Set("Authorization", "Bearer "+token)
	} else {
		resp["token"] = token
	}
	writeJSON(w, http.StatusOK, resp)
}

func (m *MockBloggeraServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	m.mu.Lock()
	delete(m.tokens, token)
	m.mu.Unlock()
	writeMessage(w, http.StatusOK, "logged out")
}

func (m *MockBloggeraServer) handleCategories(w http.ResponseWriter, _ *http.Request, _ string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	writeJSON(w, http.StatusOK, m.categories)
}

func (m *MockBloggeraServer) summaryLocked(p *mockPost, viewerID string) domain.PostSummary {
	s := p.summary
	s.LikeCount = len(m.likes[s.PostID])
	s.CommentCount = len(p.comments)
	s.ViewerHasLiked = m.likes[s.PostID][viewerID]
	return s
}

func (m *MockBloggeraServer) pageLocked(viewerID string, excluded []string, limit int, match func(*mockPost) bool) []domain.PostSummary {
	skip := make(map[string]bool, len(excluded))
	if !m.ignoreExclusions {
		for _, id := range excluded {
			skip[id] = true
		}
	}
	if limit <= 0 || limit > m.pageSize {
		limit = m.pageSize
	}

	out := []domain.PostSummary{}
	for _, p := range m.posts {
		if len(out) >= limit {
			break
		}
		if skip[p.summary.PostID] || (match != nil && !match(p)) {
			continue
		}
		out = append(out, m.summaryLocked(p, viewerID))
	}
	return out
}

func (m *MockBloggeraServer) handleCardDetails(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		UserID      string   `json:"userId"`
		ExcludedIDs []string `json:"excludedIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed body")
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	writeJSON(w, http.StatusOK, m.pageLocked(userID, body.ExcludedIDs, 0, nil))
}

func (m *MockBloggeraServer) handleSearch(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		ExcludedIDs      []string `json:"excludedIds"`
		ListOfCategories []string `json:"listOfCategories"`
		UserID           string   `json:"userId"`
		Text             *string  `json:"text"`
		Sample           int      `json:"sample"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed body")
		return
	}

	var match func(*mockPost) bool
	switch {
	case len(body.ListOfCategories) > 0:
		match = func(p *mockPost) bool {
			for _, c := range p.categories {
				if slices.Contains(body.ListOfCategories, c) {
					return true
				}
			}
			return false
		}
	case body.Text != nil:
		needle := strings.ToLower(*body.Text)
		match = func(p *mockPost) bool {
			return strings.Contains(strings.ToLower(p.summary.Title), needle) ||
				strings.Contains(strings.ToLower(p.summary.HTMLContent), needle)
		}
	default:
		writeMessage(w, http.StatusBadRequest, "either listOfCategories or text is required")
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	writeJSON(w, http.StatusOK, m.pageLocked(userID, body.ExcludedIDs, body.Sample, match))
}

func (m *MockBloggeraServer) findPostLocked(id string) *mockPost {
	for _, p := range m.posts {
		if p.summary.PostID == id {
			return p
		}
	}
	return nil
}

func (m *MockBloggeraServer) handleFullPostDetails(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		PostID string `json:"postId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.findPostLocked(body.PostID)
	if p == nil {
		writeMessage(w, http.StatusNotFound, "Post not found")
		return
	}
	writeJSON(w, http.StatusOK, domain.PostDetail{
		PostSummary: m.summaryLocked(p, userID),
		Categories:  p.categories,
		Comments:    p.comments,
	})
}

func (m *MockBloggeraServer) handleAddPost(w http.ResponseWriter, r *http.Request, userID string) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeMessage(w, http.StatusBadRequest, "expected multipart form")
		return
	}
	title := r.FormValue("title")
	content := r.FormValue("content")
	categoryIDs := r.MultipartForm.Value["category"]
	if title == "" || content == "" || len(categoryIDs) == 0 {
		writeMessage(w, http.StatusBadRequest, "title, content and category are required")
		return
	}

	var image []byte
	if file, _, err := r.FormFile("postImage"); err == nil {
		image, _ = io.ReadAll(file)
		file.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var names []string
	for _, id := range categoryIDs {
		for _, c := range m.categories {
			if c.ID == id {
				names = append(names, c.Name)
			}
		}
	}

	var author *mockUser
	for _, u := range m.users {
		if u.id == userID {
			author = u
		}
	}

	imageURL := ""
	if image != nil {
		imageURL = "https://img.example/posts/" + fmt.Sprint(m.seq+1) + ".png"
	}
	id := m.addPostLocked(author, title, content, names, imageURL)
	m.posts[len(m.posts)-1].image = image
	writeJSON(w, http.StatusCreated, map[string]string{"postId": id, "status": "created"})
}

func (m *MockBloggeraServer) handleLike(add bool) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, r *http.Request, userID string) {
		var body struct {
			PostID string `json:"postId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.findPostLocked(body.PostID) == nil {
			writeMessage(w, http.StatusNotFound, "Post not found")
			return
		}
		if add {
			if m.likes[body.PostID] == nil {
				m.likes[body.PostID] = make(map[string]bool)
			}
			m.likes[body.PostID][userID] = true
		} else {
			delete(m.likes[body.PostID], userID)
		}
		writeMessage(w, http.StatusOK, "ok")
	}
}

func (m *MockBloggeraServer) handleLikeStatus(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		PostID string `json:"postId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	m.mu.RLock()
	defer m.mu.RUnlock()
	writeJSON(w, http.StatusOK, m.likes[body.PostID][userID])
}

func (m *MockBloggeraServer) handleLikeCount(w http.ResponseWriter, r *http.Request, _ string) {
	var body struct {
		PostID string `json:"postId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.findPostLocked(body.PostID)
	if p == nil {
		writeMessage(w, http.StatusNotFound, "Post not found")
		return
	}
	writeJSON(w, http.StatusOK, domain.Counts{LikeCount: len(m.likes[body.PostID]), CommentCount: len(p.comments)})
}

func (m *MockBloggeraServer) handleFollow(add bool) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, r *http.Request, userID string) {
		var body struct {
			LoggedUserID   string `json:"loggedUserId"`
			FollowedUserID string `json:"followedUserId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		m.mu.Lock()
		defer m.mu.Unlock()
		if add {
			if m.follows[userID] == nil {
				m.follows[userID] = make(map[string]bool)
			}
			m.follows[userID][body.FollowedUserID] = true
		} else {
			delete(m.follows[userID], body.FollowedUserID)
		}
		writeMessage(w, http.StatusOK, "ok")
	}
}

func (m *MockBloggeraServer) handleFollowStatus(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		FollowedUserID string `json:"followedUserId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	m.mu.RLock()
	defer m.mu.RUnlock()
	writeJSON(w, http.StatusOK, m.follows[userID][body.FollowedUserID])
}

func (m *MockBloggeraServer) handleUserDetails(w http.ResponseWriter, r *http.Request, viewerID string) {
	var body struct {
		Email string `json:"email"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var u *mockUser
	for _, candidate := range m.users {
		if candidate.email == body.Email {
			u = candidate
		}
	}
	if u == nil {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}

	followers := 0
	for _, followed := range m.follows {
		if followed[u.id] {
			followers++
		}
	}

	posts := []domain.PostSummary{}
	for _, p := range m.posts {
		if p.summary.AuthorUserID == u.id {
			posts = append(posts, m.summaryLocked(p, viewerID))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": domain.UserProfile{
			UserID:         u.id,
			Username:       u.username,
			Email:          u.email,
			AvatarURL:      u.avatar,
			Bio:            u.bio,
			FollowStatus:   m.follows[viewerID][u.id],
			FollowerCount:  followers,
			FollowingCount: len(m.follows[u.id]),
		},
		"posts": posts,
	})
}

func (m *MockBloggeraServer) handleAddComment(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		PostID      string `json:"postId"`
		CommentText string `json:"commentText"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if strings.TrimSpace(body.CommentText) == "" {
		writeMessage(w, http.StatusBadRequest, "commentText is required")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.findPostLocked(body.PostID)
	if p == nil {
		writeMessage(w, http.StatusNotFound, "Post not found")
		return
	}

	var username string
	for _, u := range m.users {
		if u.id == userID {
			username = u.username
		}
	}

	m.seq++
	c := domain.Comment{
		CommentID:      fmt.Sprintf("c%d", m.seq),
		PostID:         body.PostID,
		AuthorUserID:   userID,
		AuthorUsername: username,
		Text:           body.CommentText,
		CreatedAt:      time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	p.comments = append(p.comments, c)
	writeJSON(w, http.StatusCreated, c)
}
