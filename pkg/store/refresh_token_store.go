package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrInvalidRefreshToken means the token is unknown, expired, or revoked.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrRefreshTokenReplay means an already-rotated token was presented again.
	ErrRefreshTokenReplay = errors.New("refresh token replay detected")
)

// RefreshTokenStore persists rotating refresh tokens. Tokens belong to a
// family: rotation moves the live token forward, and presenting a stale
// member of the family revokes the whole family.
type RefreshTokenStore interface {
	NewToken(userID string, ttl time.Duration) (string, error)
	RotateToken(token string, ttl time.Duration) (userID string, newToken string, err error)
	DeleteToken(token string) error
}

func mintRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func mintFamilyID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Only hashes are stored; a leaked store dump yields no usable tokens.
func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type tokenFamily struct {
	userID    string
	liveHash  string
	expiresAt time.Time
	hashes    map[string]struct{}
}

// MemoryRefreshTokenStore is the in-memory twin used by tests and by the
// handlers' unit suites.
type MemoryRefreshTokenStore struct {
	mu     sync.Mutex
	byHash map[string]*tokenFamily
	byUser map[string][]*tokenFamily
}

func NewMemoryRefreshTokenStore() *MemoryRefreshTokenStore {
	return &MemoryRefreshTokenStore{
		byHash: make(map[string]*tokenFamily),
		byUser: make(map[string][]*tokenFamily),
	}
}

// NewToken starts a fresh family and returns its first token.
func (s *MemoryRefreshTokenStore) NewToken(userID string, ttl time.Duration) (string, error) {
	token, err := mintRefreshToken()
	if err != nil {
		return "", err
	}
	hash := hashRefreshToken(token)

	fam := &tokenFamily{
		userID:    userID,
		liveHash:  hash,
		expiresAt: time.Now().UTC().Add(ttl),
		hashes:    map[string]struct{}{hash: {}},
	}

	s.mu.Lock()
	s.byHash[hash] = fam
	s.byUser[userID] = append(s.byUser[userID], fam)
	s.mu.Unlock()
	return token, nil
}

// RotateToken exchanges the live token for a new one in the same family.
// A stale family member is treated as replay and burns the family.
func (s *MemoryRefreshTokenStore) RotateToken(token string, ttl time.Duration) (string, string, error) {
	hash := hashRefreshToken(token)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	fam, ok := s.byHash[hash]
	if !ok {
		return "", "", ErrInvalidRefreshToken
	}
	if now.After(fam.expiresAt) {
		s.dropFamilyLocked(fam)
		return "", "", ErrInvalidRefreshToken
	}
	if fam.liveHash != hash {
		s.dropFamilyLocked(fam)
		return "", "", ErrRefreshTokenReplay
	}

	next, err := mintRefreshToken()
	if err != nil {
		return "", "", err
	}
	nextHash := hashRefreshToken(next)
	fam.liveHash = nextHash
	fam.expiresAt = now.Add(ttl)
	fam.hashes[nextHash] = struct{}{}
	s.byHash[nextHash] = fam
	return fam.userID, next, nil
}

// DeleteToken revokes the family the token belongs to. Unknown tokens are a
// no-op so logout stays idempotent.
func (s *MemoryRefreshTokenStore) DeleteToken(token string) error {
	hash := hashRefreshToken(token)
	s.mu.Lock()
	if fam, ok := s.byHash[hash]; ok {
		s.dropFamilyLocked(fam)
	}
	s.mu.Unlock()
	return nil
}

// RevokeUserRefreshTokens burns every family the user owns.
func (s *MemoryRefreshTokenStore) RevokeUserRefreshTokens(userID string) error {
	s.mu.Lock()
	fams := append([]*tokenFamily(nil), s.byUser[userID]...)
	for _, fam := range fams {
		s.dropFamilyLocked(fam)
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryRefreshTokenStore) dropFamilyLocked(fam *tokenFamily) {
	for h := range fam.hashes {
		delete(s.byHash, h)
	}
	owned := s.byUser[fam.userID]
	for i, candidate := range owned {
		if candidate == fam {
			s.byUser[fam.userID] = append(owned[:i], owned[i+1:]...)
			break
		}
	}
	if len(s.byUser[fam.userID]) == 0 {
		delete(s.byUser, fam.userID)
	}
}

const redisRefreshTimeout = 3 * time.Second

func refreshLookupKey(hash string) string { return "skyward:refresh:lookup:" + hash }
func refreshMetaKey(id string) string     { return "skyward:refresh:meta:" + id }
func refreshHashesKey(id string) string   { return "skyward:refresh:hashes:" + id }
func refreshOwnerKey(userID string) string {
	return "skyward:refresh:owner:" + userID
}

// RedisRefreshTokenStore is the production refresh token store. Rotation runs
// under WATCH on the family meta key so two concurrent rotations of the same
// token resolve to exactly one winner.
type RedisRefreshTokenStore struct {
	client *redis.Client
}

func NewRedisRefreshTokenStore(addr, password string) *RedisRefreshTokenStore {
	return &RedisRefreshTokenStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

func (s *RedisRefreshTokenStore) writeFamily(ctx context.Context, pipe redis.Pipeliner, familyID, userID, hash string, ttl time.Duration) {
	pipe.Set(ctx, refreshLookupKey(hash), familyID, ttl)
	pipe.HSet(ctx, refreshMetaKey(familyID), map[string]any{
		"user": userID,
		"live": hash,
	})
	pipe.Expire(ctx, refreshMetaKey(familyID), ttl)
	pipe.SAdd(ctx, refreshHashesKey(familyID), hash)
	pipe.Expire(ctx, refreshHashesKey(familyID), ttl)
	pipe.SAdd(ctx, refreshOwnerKey(userID), familyID)
	pipe.Expire(ctx, refreshOwnerKey(userID), ttl)
}

// NewToken starts a fresh family and returns its first token.
func (s *RedisRefreshTokenStore) NewToken(userID string, ttl time.Duration) (string, error) {
	token, err := mintRefreshToken()
	if err != nil {
		return "", err
	}
	familyID, err := mintFamilyID()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisRefreshTimeout)
	defer cancel()

	pipe := s.client.TxPipeline()
	s.writeFamily(ctx, pipe, familyID, userID, hashRefreshToken(token), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

// RotateToken exchanges the live token for a new one in the same family.
func (s *RedisRefreshTokenStore) RotateToken(token string, ttl time.Duration) (string, string, error) {
	hash := hashRefreshToken(token)
	ctx, cancel := context.WithTimeout(context.Background(), redisRefreshTimeout)
	defer cancel()

	for {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		familyID, err := s.client.Get(ctx, refreshLookupKey(hash)).Result()
		if err == redis.Nil {
			return "", "", ErrInvalidRefreshToken
		}
		if err != nil {
			return "", "", err
		}

		var (
			userID string
			next   string
			burn   bool
		)
		metaKey := refreshMetaKey(familyID)

		err = s.client.Watch(ctx, func(tx *redis.Tx) error {
			meta, err := tx.HGetAll(ctx, metaKey).Result()
			if err != nil {
				return err
			}
			userID = meta["user"]
			live := meta["live"]
			if userID == "" || live == "" {
				burn = true
				return ErrInvalidRefreshToken
			}
			if live != hash {
				burn = true
				return ErrRefreshTokenReplay
			}

			next, err = mintRefreshToken()
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				s.writeFamily(ctx, pipe, familyID, userID, hashRefreshToken(next), ttl)
				return nil
			})
			return err
		}, metaKey)

		if err == redis.TxFailedErr {
			// Lost the race; re-read and let the replay check decide.
			continue
		}
		if err != nil {
			if burn {
				_ = s.burnFamily(ctx, familyID, userID)
			}
			switch {
			case errors.Is(err, ErrRefreshTokenReplay):
				return "", "", ErrRefreshTokenReplay
			case errors.Is(err, ErrInvalidRefreshToken):
				return "", "", ErrInvalidRefreshToken
			default:
				return "", "", err
			}
		}
		return userID, next, nil
	}
}

// DeleteToken revokes the family the token belongs to.
func (s *RedisRefreshTokenStore) DeleteToken(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisRefreshTimeout)
	defer cancel()

	familyID, err := s.client.Get(ctx, refreshLookupKey(hashRefreshToken(token))).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	meta, err := s.client.HGetAll(ctx, refreshMetaKey(familyID)).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	return s.burnFamily(ctx, familyID, meta["user"])
}

// RevokeUserRefreshTokens burns every family the user owns.
func (s *RedisRefreshTokenStore) RevokeUserRefreshTokens(userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisRefreshTimeout)
	defer cancel()

	familyIDs, err := s.client.SMembers(ctx, refreshOwnerKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, familyID := range familyIDs {
		if err := s.burnFamily(ctx, familyID, userID); err != nil {
			return err
		}
	}
	if err := s.client.Del(ctx, refreshOwnerKey(userID)).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

func (s *RedisRefreshTokenStore) burnFamily(ctx context.Context, familyID, userID string) error {
	if userID == "" {
		meta, err := s.client.HGetAll(ctx, refreshMetaKey(familyID)).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		userID = meta["user"]
	}
	hashes, err := s.client.SMembers(ctx, refreshHashesKey(familyID)).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	pipe := s.client.TxPipeline()
	for _, hash := range hashes {
		pipe.Del(ctx, refreshLookupKey(hash))
	}
	pipe.Del(ctx, refreshHashesKey(familyID))
	pipe.Del(ctx, refreshMetaKey(familyID))
	if userID != "" {
		pipe.SRem(ctx, refreshOwnerKey(userID), familyID)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return err
	}
	return nil
}
