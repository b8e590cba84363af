package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	idempotencyHeader   = "Idempotency-Key"
	idempotencyReplayed = "Idempotent-Replayed"
	idempotencyPrefix   = "idempotency:"
	idempotencyTTL      = 24 * time.Hour
	inFlightTTL         = time.Minute
	maxIdempotencyKey   = 128
)

var (
	// ErrNoStoredResponse is returned by a ResponseStore on a cache miss.
	ErrNoStoredResponse = errors.New("no stored response")

	// ErrRequestInFlight is returned by Load while the first request with
	// the key is still running.
	ErrRequestInFlight = errors.New("request with this Idempotency-Key is in progress")
)

// StoredResponse is the replayable part of a finished request.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// ResponseStore keeps responses of mutating requests for replay. Reserve
// claims a key before the request runs and reports false when another
// request holds it; Release drops a claim whose request is not stored.
type ResponseStore interface {
	Load(ctx context.Context, key string) (*StoredResponse, error)
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Save(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// inFlightMarker is the stored value of a claimed key. A zero status never
// comes from a finished request.
var inFlightMarker = []byte(`{"status":0}`)

// RedisResponseStore is a ResponseStore backed by Redis string keys.
type RedisResponseStore struct {
	client *redis.Client
}

// NewRedisResponseStore returns nil when client is nil, which disables replay.
func NewRedisResponseStore(client *redis.Client) ResponseStore {
	if client == nil {
		return nil
	}
	return &RedisResponseStore{client: client}
}

func (s *RedisResponseStore) Load(ctx context.Context, key string) (*StoredResponse, error) {
	data, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoStoredResponse
	}
	if err != nil {
		return nil, err
	}
	var resp StoredResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	if resp.Status == 0 {
		return nil, ErrRequestInFlight
	}
	return &resp, nil
}

func (s *RedisResponseStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, idempotencyPrefix+key, inFlightMarker, ttl).Result()
}

func (s *RedisResponseStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyPrefix+key).Err()
}

func (s *RedisResponseStore) Save(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, idempotencyPrefix+key, data, ttl).Err()
}

// capturingWriter tees the response body so it can be stored.
type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware replays the stored response of a POST, PATCH or
// DELETE retried with the same Idempotency-Key, so a retried booking create
// does not reserve a second slot. Keys are scoped to the caller and route,
// so it must run after Authenticate. A nil store disables it.
func IdempotencyMiddleware(store ResponseStore, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if store == nil {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodPost, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(idempotencyHeader))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKey {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key is too long"})
			return
		}

		ctx := c.Request.Context()
		scoped := strings.Join([]string{IdentityFrom(c).UserID, c.Request.Method, c.Request.URL.Path, key}, ":")

		stored, err := store.Load(ctx, scoped)
		switch {
		case err == nil:
			c.Header(idempotencyReplayed, "true")
			replay(c, stored)
			c.Abort()
			return
		case errors.Is(err, ErrRequestInFlight):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		case !errors.Is(err, ErrNoStoredResponse):
			logger.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		claimed, err := store.Reserve(ctx, scoped, inFlightTTL)
		if err != nil {
			logger.Warn("idempotency reserve failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": ErrRequestInFlight.Error()})
			return
		}

		w := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		// 5xx responses are not stored so the client can retry them.
		status := w.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(context.WithoutCancel(ctx), scoped); err != nil {
				logger.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
			}
			return
		}
		resp := &StoredResponse{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		}
		if err := store.Save(context.WithoutCancel(ctx), scoped, resp, idempotencyTTL); err != nil {
			logger.Warn("idempotency store failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func replay(c *gin.Context, resp *StoredResponse) {
	if len(resp.Body) == 0 {
		c.Status(resp.Status)
		c.Writer.WriteHeaderNow()
		return
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	c.Data(resp.Status, contentType, resp.Body)
}
