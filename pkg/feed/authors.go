package feed

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// AuthorSet is an immutable set of curated handles.
type AuthorSet struct {
	handles map[string]struct{}
}

// NewAuthorSet builds a set; handles are matched case-insensitively and a
// leading "@" is ignored.
func NewAuthorSet(handles []string) *AuthorSet {
	m := make(map[string]struct{}, len(handles))
	for _, h := range handles {
		if h = normalizeHandle(h); h != "" {
			m[h] = struct{}{}
		}
	}
	return &AuthorSet{handles: m}
}

// Has is an exact, case-insensitive membership test.
func (s *AuthorSet) Has(handle string) bool {
	if s == nil {
		return false
	}
	_, ok := s.handles[normalizeHandle(handle)]
	return ok
}

func (s *AuthorSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.handles)
}

// Curated holds the session's AuthorSet. It is loaded once and afterwards
// only ever replaced wholesale, so readers need no locking.
type Curated struct {
	current atomic.Pointer[AuthorSet]
	once    sync.Once
}

// Current returns the loaded set, or an empty one before loading. An empty
// set admits nobody.
func (c *Curated) Current() *AuthorSet {
	if s := c.current.Load(); s != nil {
		return s
	}
	return NewAuthorSet(nil)
}

// Load fetches the list on the first call of the session. A nil result
// (unknown) leaves the set empty.
func (c *Curated) Load(ctx context.Context, fetch func(ctx context.Context) []string) {
	c.once.Do(func() {
		if handles := fetch(ctx); handles != nil {
			c.Replace(handles)
		}
	})
}

// Replace swaps in a new set.
func (c *Curated) Replace(handles []string) {
	c.current.Store(NewAuthorSet(handles))
}

func normalizeHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}
