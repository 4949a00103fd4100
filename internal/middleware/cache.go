package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/config"
)

// ProfileCache caches successful profile responses in Redis, keyed by
// the authenticated user.  Mutation handlers call Invalidate so a
// stale profile is never served after an update; the TTL is only a
// backstop.  With no Redis client (or caching disabled) everything
// degrades to a pass-through.
type ProfileCache struct {
	rdb *redis.Client
	cfg config.CacheConfig
}

// NewProfileCache builds the cache helper.  rdb may be nil.
func NewProfileCache(rdb *redis.Client, cfg config.CacheConfig) *ProfileCache {
	return &ProfileCache{rdb: rdb, cfg: cfg}
}

func (p *ProfileCache) enabled() bool { return p.rdb != nil && p.cfg.Enabled }

func (p *ProfileCache) key(userID string) string { return p.cfg.Prefix + ":" + userID }

// captureWriter captures the response body/status while forwarding to
// the client, so a successful response can be stored after the fact.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	cw.buf.Write(b)
	return cw.ResponseWriter.Write(b)
}

// Middleware serves cached profile bodies and stores fresh ones.  Only
// GET requests from authenticated users participate.
func (p *ProfileCache) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !p.enabled() || c.Request().Method != http.MethodGet {
				return next(c)
			}
			userID := UserID(c)
			if userID == "" {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 300*time.Millisecond)
			defer cancel()
			if body, err := p.rdb.Get(ctx, p.key(userID)).Bytes(); err == nil {
				return c.JSONBlob(http.StatusOK, body)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && cw.buf.Len() > 0 {
				storeCtx, storeCancel := context.WithTimeout(context.Background(), time.Second)
				defer storeCancel()
				_ = p.rdb.Set(storeCtx, p.key(userID), cw.buf.Bytes(), p.cfg.TTL).Err()
			}
			return nil
		}
	}
}

// Invalidate drops the cached profile for userID.
func (p *ProfileCache) Invalidate(ctx context.Context, userID string) {
	if !p.enabled() || userID == "" {
		return
	}
	_ = p.rdb.Del(ctx, p.key(userID)).Err()
}
