package testutil

import (
	"sync"

	"github.com/bloggera/bloggera/internal/domain"
)

// StaticCredentials is a settable credential source.
type StaticCredentials struct {
	mu      sync.RWMutex
	session *domain.Session
}

// NewStaticCredentials returns a source holding s, which may be nil.
func NewStaticCredentials(s *domain.Session) *StaticCredentials {
	return &StaticCredentials{session: s}
}

// Current returns a copy of the held session.
func (c *StaticCredentials) Current() (*domain.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.session.IsValid() {
		return nil, false
	}
	return c.session.Clone(), true
}

// Set replaces the held session.
func (c *StaticCredentials) Set(s *domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}
