package evidence

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const defaultSessionTTL = 10 * time.Minute

type documentLookup struct {
	valid bool
	text  string
	err   error
}

// Session is the evidence view of a single case. Document lookups are
// memoized for the lifetime of the session, failures included, so a
// requirement and the document score never hit the provider twice for the
// same document.
type Session struct {
	provider Provider
	caseID   string
	docs     *gocache.Cache
}

// NewSession opens a session for caseID. A non-positive ttl uses the default.
func NewSession(provider Provider, caseID string, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Session{
		provider: provider,
		caseID:   caseID,
		docs:     gocache.New(ttl, 0),
	}
}

func (s *Session) CaseID() string {
	return s.caseID
}

// CheckDocument looks the document up once and replays the outcome after.
func (s *Session) CheckDocument(ctx context.Context, name string) (bool, string, error) {
	if cached, found := s.docs.Get(name); found {
		lookup := cached.(documentLookup)
		return lookup.valid, lookup.text, lookup.err
	}

	valid, text, err := s.provider.CheckDocument(ctx, s.caseID, name)
	if err != nil {
		valid = false
	}
	s.docs.SetDefault(name, documentLookup{valid: valid, text: text, err: err})
	return valid, text, err
}

// Lookups returns how many distinct documents have been looked up.
func (s *Session) Lookups() int {
	return s.docs.ItemCount()
}

// Close drops everything memoized for the case.
func (s *Session) Close() {
	s.docs.Flush()
}
