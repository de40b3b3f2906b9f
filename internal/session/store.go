// Package session holds the authenticated identity of this client.
//
// A Store is the single owner of the session: views read it through Current and
// react to changes through Subscribe instead of reading storage directly.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/metrics"
)

// Listener receives the new session, or nil after logout.
type Listener func(s *domain.Session)

// Store is a mutex-guarded in-memory copy of the persisted session.
type Store struct {
	mu        sync.RWMutex
	storage   Storage
	current   *domain.Session
	listeners map[uint64]Listener
	nextID    uint64
	logger    *slog.Logger
}

// NewStore loads the persisted session. An unreadable file counts as logged out.
func NewStore(storage Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		storage:   storage,
		listeners: make(map[uint64]Listener),
		logger:    logger.With("component", "session"),
	}

	current, err := storage.Load()
	if err != nil {
		s.logger.Warn("ignoring unreadable session", "error", err)
	}
	s.current = current
	return s
}

// Current returns a copy of the session, if one exists.
func (s *Store) Current() (*domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.current.IsValid() {
		return nil, false
	}
	return s.current.Clone(), true
}

// Set persists sess and makes it current before returning.
func (s *Store) Set(sess *domain.Session) error {
	if !sess.IsValid() {
		return fmt.Errorf("storing session: %w", domain.ErrNoSession)
	}

	s.mu.Lock()
	if err := s.storage.Save(sess); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("storing session: %w", err)
	}
	s.current = sess.Clone()
	s.mu.Unlock()

	s.notify(sess)
	return nil
}

// Clear drops the session. Memory is cleared even when storage fails.
func (s *Store) Clear() error {
	s.mu.Lock()
	err := s.storage.Clear()
	had := s.current.IsValid()
	s.current = nil
	s.mu.Unlock()

	if had {
		s.notify(nil)
	}
	if err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Subscribe registers fn for session changes and returns its cancel func.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Reload re-reads storage and notifies listeners if the identity changed.
func (s *Store) Reload() bool {
	loaded, err := s.storage.Load()
	if err != nil {
		s.logger.Warn("reloading session failed", "error", err)
		return false
	}

	s.mu.Lock()
	if sameSession(s.current, loaded) {
		s.mu.Unlock()
		return false
	}
	s.current = loaded.Clone()
	s.mu.Unlock()

	metrics.RecordSessionEvent("external_change")
	s.logger.Info("session changed by another process", "logged_in", loaded.IsValid())
	s.notify(loaded)
	return true
}

// Watch reloads the session whenever its file changes, until ctx is done.
// Storage that is not file-backed has nothing to watch.
func (s *Store) Watch(ctx context.Context) error {
	fs, ok := s.storage.(*FileStorage)
	if !ok {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating session watcher: %w", err)
	}
	defer watcher.Close()

	// Atomic saves rename over the file, so watch the directory.
	dir := filepath.Dir(fs.Path())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	target := filepath.Clean(fs.Path())

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				s.Reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("session watcher error", "error", err)
		}
	}
}

func (s *Store) notify(sess *domain.Session) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(sess.Clone())
	}
}

func sameSession(a, b *domain.Session) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	return a.UserID == b.UserID && a.Token == b.Token
}
