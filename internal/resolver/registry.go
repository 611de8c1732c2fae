package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Factory creates the Resolver for a session identified by its cookie.
type Factory func(cookie string) *Resolver

// Registry keeps one Resolver per client session. Sessions are keyed by a
// hash of the Cookie header and expire ttl after their first use, after
// which the next request builds a fresh Resolver.
type Registry struct {
	factory Factory

	mu    sync.Mutex
	cache *expirable.LRU[string, *Resolver]
}

// NewRegistry creates a Registry holding at most size sessions.
func NewRegistry(size int, ttl time.Duration, factory Factory) *Registry {
	if size <= 0 {
		size = 1
	}
	return &Registry{
		factory: factory,
		cache:   expirable.NewLRU[string, *Resolver](size, nil, ttl),
	}
}

// ForCookie returns the Resolver for the session carrying cookie.
func (reg *Registry) ForCookie(cookie string) *Resolver {
	key := sessionKey(cookie)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if r, ok := reg.cache.Get(key); ok {
		return r
	}
	r := reg.factory(cookie)
	reg.cache.Add(key, r)
	return r
}

// Len returns the number of live sessions.
func (reg *Registry) Len() int {
	return reg.cache.Len()
}

func sessionKey(cookie string) string {
	sum := sha256.Sum256([]byte(cookie))
	return hex.EncodeToString(sum[:])
}
