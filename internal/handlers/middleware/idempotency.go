package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nkiryanov/minibank/internal/handlers/render"
	"github.com/nkiryanov/minibank/internal/handlers/userctx"
)

const (
	IdempotencyHeader    = "Idempotency-Key"
	IdempotencyHitHeader = "X-Idempotency-Hit"

	idempotencyCacheTTL = 24 * time.Hour
	idempotencyLockTTL  = 10 * time.Second

	idempotencyKeyPrefix  = "idempotency:"
	idempotencyLockPrefix = "idempotency-lock:"

	maxIdempotentBodySize = 1 << 20
)

type idempotencyLogger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type cachedResponse struct {
	// sha256 of the request body the response was given for
	Fingerprint string          `json:"fingerprint"`
	Status      int             `json:"status"`
	Body        json.RawMessage `json:"body"`
}

type recordWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *recordWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays successful responses for repeated Idempotency-Key within a day
// Keys are scoped by the authenticated user, so it has to be used after AuthMiddleware.
// A response is replayed only for the same request body. Other body with the same key goes to the handler,
// which owns the final decision (the key is stored with the transfer), and its response is not cached.
// The cache only saves work: if redis is nil or unavailable requests go straight to the handler.
func Idempotency(rdb *redis.Client, l idempotencyLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rdb == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			user, ok := userctx.FromContext(r.Context())
			if key == "" || !ok {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIdempotentBodySize))
			if err != nil {
				render.ServiceError(w, "Request body is too large or unreadable", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			sum := sha256.Sum256(body)
			fingerprint := hex.EncodeToString(sum[:])

			ctx := r.Context()
			scope := user.ID.String() + ":" + key
			cacheKey := idempotencyKeyPrefix + scope
			lockKey := idempotencyLockPrefix + scope + ":" + fingerprint

			cached, err := rdb.Get(ctx, cacheKey).Bytes()
			switch {
			case err == nil:
				var resp cachedResponse
				if err := json.Unmarshal(cached, &resp); err != nil {
					l.Error("Broken idempotency cache entry", "key", key, "error", err)
					_ = rdb.Del(ctx, cacheKey).Err()
					break
				}
				if resp.Fingerprint != fingerprint {
					l.Info("Idempotency key reused with other payload", "key", key, "user_id", user.ID)
					next.ServeHTTP(w, r)
					return
				}
				l.Info("Idempotent response replayed", "key", key, "user_id", user.ID)
				w.Header().Set(IdempotencyHitHeader, "true")
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(resp.Status)
				_, _ = w.Write(resp.Body)
				return
			case !errors.Is(err, redis.Nil):
				l.Error("Idempotency cache is unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			acquired, err := rdb.SetNX(ctx, lockKey, "processing", idempotencyLockTTL).Result()
			if err != nil {
				l.Error("Idempotency lock is unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				render.ServiceError(w, "A request with this idempotency key is currently being processed", http.StatusConflict)
				return
			}
			defer func() {
				// Request context may be canceled already
				if err := rdb.Del(context.WithoutCancel(ctx), lockKey).Err(); err != nil {
					l.Error("Failed to release idempotency lock", "key", key, "error", err)
				}
			}()

			rw := &recordWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			if rw.status < 200 || rw.status >= 300 {
				return
			}

			entry, err := json.Marshal(cachedResponse{
				Fingerprint: fingerprint,
				Status:      rw.status,
				Body:        bytes.TrimSpace(rw.body.Bytes()),
			})
			if err != nil {
				l.Error("Failed to encode idempotent response", "key", key, "error", err)
				return
			}
			// First cached response wins
			if err := rdb.SetNX(context.WithoutCancel(ctx), cacheKey, entry, idempotencyCacheTTL).Err(); err != nil {
				l.Error("Failed to cache idempotent response", "key", key, "error", err)
			}
		})
	}
}
