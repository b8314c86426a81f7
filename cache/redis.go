package cache

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/yapper/config"
	"github.com/cppla/yapper/utils"
)

const opTimeout = 2 * time.Second

// Redis stores entries in a Redis server.
type Redis struct {
	rc *redis.Client
}

// NewRedisClient builds a client from the loaded configuration and pings it.
func NewRedisClient(c config.AppConfig) (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort)),
		Password:     c.RedisPassword,
		DB:           c.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, err
	}
	return rc, nil
}

// NewRedis wraps an existing client.
func NewRedis(rc *redis.Client) *Redis {
	return &Redis{rc: rc}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	b, err := r.rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			utils.Sugar.Debugf("cache get miss key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := r.rc.Set(ctx, key, value, ttl).Err(); err != nil {
		utils.Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

func (r *Redis) Add(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	ok, err := r.rc.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		utils.Sugar.Warnf("cache add failed key=%s err=%v", key, err)
		return false
	}
	return ok
}

func (r *Redis) Take(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	// Prefer GETDEL (Redis >= 6.2)
	if b, err := r.rc.GetDel(ctx, key).Bytes(); err == nil {
		return b, true
	} else if err == redis.Nil {
		return nil, false
	}
	// Fallback to Lua to attempt atomic get+del when GETDEL not available
	script := `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`
	res, err := r.rc.Eval(ctx, script, []string{key}).Result()
	if err != nil || res == nil {
		return nil, false
	}
	s, ok := res.(string)
	return []byte(s), ok
}

// InvalidateByPrefix deletes keys that match the given prefix using SCAN.
func (r *Redis) InvalidateByPrefix(ctx context.Context, prefix string) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := r.rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			utils.Sugar.Warnf("cache invalidate scan failed prefix=%s err=%v", prefix, err)
			return
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := r.rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			return
		}
	}
}
