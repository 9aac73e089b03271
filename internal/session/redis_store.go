package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var errSealed = errors.New("session payload cannot be opened")

// RedisStore keeps sessions in Redis. Payloads hold OAuth tokens and are
// sealed with a key derived from the session secret.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	key    [32]byte
}

// NewRedisStore creates a new Redis-backed session store
func NewRedisStore(redisURL, secret string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, secret, ttl), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, secret string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "relay:session:",
		ttl:    ttl,
		key:    sha256.Sum256([]byte(secret)),
	}
}

func (s *RedisStore) redisKey(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Load(ctx context.Context, id string) (Data, error) {
	raw, err := s.client.Get(ctx, s.redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Data{}, ErrNotFound
	}
	if err != nil {
		return Data{}, fmt.Errorf("load session: %w", err)
	}

	plain, err := s.open(raw)
	if err != nil {
		return Data{}, err
	}
	var data Data
	if err := json.Unmarshal(plain, &data); err != nil {
		return Data{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return data, nil
}

// Save stores data and restarts the session lifetime.
func (s *RedisStore) Save(ctx context.Context, id string, data Data) error {
	plain, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	sealed, err := s.seal(plain)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.redisKey(id), sealed, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.redisKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("session nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &s.key), nil
}

func (s *RedisStore) open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, errSealed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, errSealed
	}
	return plain, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
