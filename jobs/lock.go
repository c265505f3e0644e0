// Package jobs runs the commission batch jobs, serialized across instances by a lock.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Govind-619/StudyHub/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrJobRunning is returned when another instance holds the job lock
var ErrJobRunning = errors.New("job is already running")

// Locker hands out exclusive, expiring job locks
type Locker interface {
	// Acquire returns a release func, or ErrJobRunning when the lock is held
	Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error)
}

// LocalLocker serializes jobs within one process. Used when no Redis is configured.
type LocalLocker struct {
	mu      sync.Mutex
	running map[string]bool
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{running: make(map[string]bool)}
}

func (l *LocalLocker) Acquire(_ context.Context, name string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running[name] {
		return nil, ErrJobRunning
	}
	l.running[name] = true
	return func() {
		l.mu.Lock()
		delete(l.running, name)
		l.mu.Unlock()
	}, nil
}

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker holds job locks in Redis with SET NX and a TTL
type RedisLocker struct {
	client *redis.Client
	prefix string
}

// NewRedisLocker connects to redisURL, which may be a redis:// URL or host:port
func NewRedisLocker(redisURL string) (*RedisLocker, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	return &RedisLocker{client: client, prefix: "studyhub:job:"}, nil
}

// NewRedisLockerFromClient wraps an existing client
func NewRedisLockerFromClient(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, prefix: "studyhub:job:"}
}

func (r *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	key := r.prefix + name
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s lock: %w", name, err)
	}
	if !ok {
		return nil, ErrJobRunning
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
			utils.LogError("Failed to release %s lock: %v", name, err)
		}
	}, nil
}

func (r *RedisLocker) Close() error {
	return r.client.Close()
}
