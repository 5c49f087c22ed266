package store

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRevoker remembers revoked session token IDs until they would have
// expired anyway, so a logged-out JWT stops verifying before its exp.
type TokenRevoker interface {
	Revoke(token string, ttl time.Duration) error
	IsRevoked(token string) (bool, error)
}

// MemoryTokenRevoker is for tests and single-process runs.
type MemoryTokenRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryTokenRevoker() *MemoryTokenRevoker {
	return &MemoryTokenRevoker{revoked: make(map[string]time.Time)}
}

func (r *MemoryTokenRevoker) Revoke(token string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already past exp; nothing to remember.
		return nil
	}
	r.mu.Lock()
	r.revoked[token] = time.Now().Add(ttl)
	r.mu.Unlock()
	return nil
}

func (r *MemoryTokenRevoker) IsRevoked(token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.revoked[token]
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		delete(r.revoked, token)
		return false, nil
	}
	return true, nil
}

const revokerTimeout = 3 * time.Second

// RedisTokenRevoker shares the revocation set across processes. Entries carry
// the token's remaining TTL so Redis garbage-collects them itself.
type RedisTokenRevoker struct {
	client *redis.Client
}

func NewRedisTokenRevoker(addr, password string) *RedisTokenRevoker {
	return &RedisTokenRevoker{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

func (r *RedisTokenRevoker) Revoke(token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), revokerTimeout)
	defer cancel()
	return r.client.Set(ctx, revocationKey(token), "1", ttl).Err()
}

func (r *RedisTokenRevoker) IsRevoked(token string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), revokerTimeout)
	defer cancel()
	n, err := r.client.Exists(ctx, revocationKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func revocationKey(token string) string {
	return "skyward:revoked:" + token
}
