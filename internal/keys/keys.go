package keys

import (
	"context"
	"strings"
	"sync"
)

// Selector is the optional host capability for choosing a credential. Code
// that holds a nil Selector treats the credential as ready.
type Selector interface {
	HasSelectedAPIKey(ctx context.Context) (bool, error)
	OpenSelectKey(ctx context.Context) error
}

type Source interface {
	APIKey(ctx context.Context) (string, error)
}

type Static string

func (s Static) APIKey(context.Context) (string, error) {
	return strings.TrimSpace(string(s)), nil
}

// Store holds a key chosen at runtime.
type Store struct {
	mu  sync.RWMutex
	key string
}

func NewStore(initial string) *Store {
	return &Store{key: strings.TrimSpace(initial)}
}

func (s *Store) APIKey(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key, nil
}

func (s *Store) Set(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = strings.TrimSpace(key)
}

func (s *Store) HasKey() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != ""
}

// Chain resolves the first non-empty key from its sources in order.
type Chain []Source

func (c Chain) APIKey(ctx context.Context) (string, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		key, err := src.APIKey(ctx)
		if err != nil {
			return "", err
		}
		if key != "" {
			return key, nil
		}
	}
	return "", nil
}

// Ready reports whether a credential is usable. A nil selector means the host
// offers no key picker, in which case the key is assumed to be ready.
func Ready(ctx context.Context, sel Selector) (bool, error) {
	if sel == nil {
		return true, nil
	}
	return sel.HasSelectedAPIKey(ctx)
}
