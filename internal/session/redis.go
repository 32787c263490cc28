package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still carries our token, so
// a lock that expired and was taken over is never released by mistake.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisOptions tunes a RedisStore.  Zero values pick defaults.
type RedisOptions struct {
	Prefix     string        // key namespace, default "bot"
	TTL        time.Duration // idle session expiry; 0 keeps sessions forever
	LockTTL    time.Duration // upper bound on a held lock, default 30s
	LockWait   time.Duration // how long Update waits for the lock, default 10s
	RetryEvery time.Duration // lock polling interval, default 25ms
}

// RedisStore keeps sessions as JSON values in Redis.  Per-user
// serialization is enforced in-process by a keyed mutex and across
// processes by a SET NX lock, so several bot instances can share one
// Redis without interleaving a user's transitions.
type RedisStore struct {
	rdb   *redis.Client
	opts  RedisOptions
	locks *keyLocks
	now   func() time.Time
}

// NewRedisStore returns a RedisStore using rdb.
func NewRedisStore(rdb *redis.Client, opts RedisOptions) *RedisStore {
	if opts.Prefix == "" {
		opts.Prefix = "bot"
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.LockWait <= 0 {
		opts.LockWait = 10 * time.Second
	}
	if opts.RetryEvery <= 0 {
		opts.RetryEvery = 25 * time.Millisecond
	}
	return &RedisStore{rdb: rdb, opts: opts, locks: newKeyLocks(), now: time.Now}
}

func (r *RedisStore) sessionKey(userID int64) string {
	return r.opts.Prefix + ":session:" + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) lockKey(userID int64) string {
	return r.opts.Prefix + ":lock:" + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) Get(ctx context.Context, userID int64) (Session, bool, error) {
	bs, err := r.rdb.Get(ctx, r.sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("session get: %w", err)
	}
	var s Session
	if err := json.Unmarshal(bs, &s); err != nil {
		return Session{}, false, fmt.Errorf("session decode: %w", err)
	}
	return s, true, nil
}

// Update waits at most LockWait for the user's lock, even when ctx has no
// deadline; a lock left behind by a crashed instance yields
// ErrLockTimeout instead of stalling the caller until it expires.
func (r *RedisStore) Update(ctx context.Context, userID int64, fn func(*Session) error) (Session, error) {
	wctx, cancel := context.WithTimeout(ctx, r.opts.LockWait)
	defer cancel()
	unlock, err := r.locks.lock(wctx, userID)
	if err != nil {
		return Session{}, err
	}
	defer unlock()

	release, err := r.acquire(wctx, userID)
	if err != nil {
		return Session{}, err
	}
	defer release()

	current, ok, err := r.Get(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		current = New(userID)
	}

	next := current
	if err := fn(&next); err != nil {
		if errors.Is(err, ErrSkipSave) {
			return current, nil
		}
		return current, err
	}
	next.UserID = userID
	next.UpdatedAt = r.now().UTC()

	data, err := json.Marshal(next)
	if err != nil {
		return current, fmt.Errorf("session encode: %w", err)
	}
	if err := r.rdb.Set(ctx, r.sessionKey(userID), data, r.opts.TTL).Err(); err != nil {
		return current, fmt.Errorf("session save: %w", err)
	}
	return next, nil
}

func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := r.rdb.Del(ctx, r.sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

// acquire polls SET NX until the distributed lock is ours or ctx ends.
func (r *RedisStore) acquire(ctx context.Context, userID int64) (func(), error) {
	token, err := randomToken(16)
	if err != nil {
		return nil, err
	}
	key := r.lockKey(userID)
	ticker := time.NewTicker(r.opts.RetryEvery)
	defer ticker.Stop()
	for {
		ok, err := r.rdb.SetNX(ctx, key, token, r.opts.LockTTL).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("session lock: %w", err)
		}
		if ok {
			return func() {
				// the caller's ctx may already be done; release on a fresh one
				rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(rctx, r.rdb, []string{key}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
