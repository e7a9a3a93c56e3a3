package mw

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// CachedResponse is a captured GET response.
type CachedResponse struct {
	Status  int         `json:"status"`
	Headers http.Header `json:"headers"`
	Body    []byte      `json:"body"`
}

// ResponseCache stores captured responses by request URI. Entries are
// scoped to a generation: Invalidate advances it, so a response computed
// before an invalidation is stored under a generation nobody reads again.
type ResponseCache interface {
	// Generation returns the current generation.
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, uri string) (CachedResponse, bool)
	Set(ctx context.Context, gen int64, uri string, resp CachedResponse)
	// Invalidate drops every cached response.
	Invalidate(ctx context.Context)
}

// MemoryCache keeps responses in process.
type MemoryCache struct {
	store *cache.Cache
	ttl   time.Duration
	gen   atomic.Int64
}

// NewMemoryCache creates an in-process cache whose entries live for ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{store: cache.New(ttl, 2*ttl), ttl: ttl}
}

func (m *MemoryCache) Generation(context.Context) (int64, error) {
	return m.gen.Load(), nil
}

func (m *MemoryCache) Get(_ context.Context, gen int64, uri string) (CachedResponse, bool) {
	v, found := m.store.Get(memoryKey(gen, uri))
	if !found {
		return CachedResponse{}, false
	}
	return v.(CachedResponse), true
}

func (m *MemoryCache) Set(_ context.Context, gen int64, uri string, resp CachedResponse) {
	if gen != m.gen.Load() {
		return
	}
	m.store.Set(memoryKey(gen, uri), resp, m.ttl)
}

func (m *MemoryCache) Invalidate(context.Context) {
	m.gen.Add(1)
	m.store.Flush()
}

func memoryKey(gen int64, uri string) string {
	return strconv.FormatInt(gen, 10) + ":" + uri
}

// RedisCache keeps responses in redis. Keys embed a generation number so
// Invalidate is a single INCR instead of a key scan.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a redis-backed cache.
func NewRedisCache(rdb *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisCache) genKey() string {
	return r.prefix + ":gen"
}

func (r *RedisCache) key(gen int64, uri string) string {
	sum := sha1.Sum([]byte(uri))
	return fmt.Sprintf("%s:%d:%x", r.prefix, gen, sum[:])
}

func (r *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := r.rdb.Get(ctx, r.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *RedisCache) Get(ctx context.Context, gen int64, uri string) (CachedResponse, bool) {
	bs, err := r.rdb.Get(ctx, r.key(gen, uri)).Bytes()
	if err != nil {
		return CachedResponse{}, false
	}
	var resp CachedResponse
	if err := json.Unmarshal(bs, &resp); err != nil {
		return CachedResponse{}, false
	}
	return resp, true
}

func (r *RedisCache) Set(ctx context.Context, gen int64, uri string, resp CachedResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := r.rdb.SetEx(ctx, r.key(gen, uri), payload, r.ttl).Err(); err != nil {
		log.Printf("cache: failed to store %s: %v", uri, err)
	}
}

func (r *RedisCache) Invalidate(ctx context.Context) {
	if err := r.rdb.Incr(ctx, r.genKey()).Err(); err != nil {
		log.Printf("cache: failed to invalidate: %v", err)
	}
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache is a middleware caching successful GET responses by request URI.
func Cache(store ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := c.Request.URL.RequestURI()
		// The generation is read before the handler touches the database so
		// a write finishing meanwhile makes this response unreachable.
		gen, err := store.Generation(ctx)
		if err != nil {
			c.Next()
			return
		}
		if cached, found := store.Get(ctx, gen, key); found {
			for k, v := range cached.Headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.Status)
			c.Writer.Write(cached.Body)
			c.Abort()
			return
		}

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw
		c.Writer.Header().Set("X-Cache", "MISS")

		c.Next()

		// Only cache successful responses
		if blw.Status() >= 200 && blw.Status() < 300 {
			headers := blw.Header().Clone()
			headers.Del("X-Cache")
			store.Set(ctx, gen, key, CachedResponse{
				Status:  blw.Status(),
				Headers: headers,
				Body:    blw.body.Bytes(),
			})
		}
	}
}

// InvalidateOnWrite drops the cache after every successful non-GET request.
func InvalidateOnWrite(store ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}
		if c.Writer.Status() < 400 {
			store.Invalidate(c.Request.Context())
		}
	}
}
