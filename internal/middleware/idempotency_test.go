package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking/internal/domain"
)

type memoryResponseStore struct {
	mu      sync.Mutex
	entries map[string]StoredResponse
	loadErr error
}

func newMemoryResponseStore() *memoryResponseStore {
	return &memoryResponseStore{entries: make(map[string]StoredResponse)}
}

func (s *memoryResponseStore) Load(_ context.Context, key string) (*StoredResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	resp, ok := s.entries[key]
	if !ok {
		return nil, ErrNoStoredResponse
	}
	if resp.Status == 0 {
		return nil, ErrRequestInFlight
	}
	return &resp, nil
}

func (s *memoryResponseStore) Reserve(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		return false, nil
	}
	s.entries[key] = StoredResponse{}
	return true, nil
}

func (s *memoryResponseStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *memoryResponseStore) Save(_ context.Context, key string, resp *StoredResponse, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = *resp
	return nil
}

func (s *memoryResponseStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// newIdempotentRouter counts handler executions and answers with the
// status stored in *status.
func newIdempotentRouter(store ResponseStore, calls *int32, status *int32) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if user := c.GetHeader("X-User"); user != "" {
			c.Set(identityKey, domain.Identity{UserID: user})
		}
		c.Next()
	})
	r.Use(IdempotencyMiddleware(store, nil))
	handle := func(c *gin.Context) {
		n := atomic.AddInt32(calls, 1)
		c.JSON(int(atomic.LoadInt32(status)), gin.H{"call": n})
	}
	r.POST("/bookings", handle)
	r.GET("/bookings", handle)
	return r
}

func send(r http.Handler, method, user, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/bookings", strings.NewReader("{}"))
	req.Header.Set("X-User", user)
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	t.Parallel()

	var calls int32
	status := int32(http.StatusCreated)
	r := newIdempotentRouter(newMemoryResponseStore(), &calls, &status)

	first := send(r, http.MethodPost, "alice", "k1")
	second := send(r, http.MethodPost, "alice", "k1")

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(idempotencyReplayed))
	assert.Empty(t, first.Header().Get(idempotencyReplayed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotency_KeysAreScopedPerUser(t *testing.T) {
	t.Parallel()

	var calls int32
	status := int32(http.StatusCreated)
	r := newIdempotentRouter(newMemoryResponseStore(), &calls, &status)

	send(r, http.MethodPost, "alice", "k1")
	w := send(r, http.MethodPost, "bob", "k1")

	assert.Empty(t, w.Header().Get(idempotencyReplayed))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotency_Bypass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		key    string
	}{
		{"no key", http.MethodPost, ""},
		{"read request", http.MethodGet, "k1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			status := int32(http.StatusOK)
			store := newMemoryResponseStore()
			r := newIdempotentRouter(store, &calls, &status)

			send(r, tt.method, "alice", tt.key)
			send(r, tt.method, "alice", tt.key)

			assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
			assert.Zero(t, store.len())
		})
	}
}

func TestIdempotency_ServerErrorsNotStored(t *testing.T) {
	t.Parallel()

	var calls int32
	status := int32(http.StatusInternalServerError)
	store := newMemoryResponseStore()
	r := newIdempotentRouter(store, &calls, &status)

	send(r, http.MethodPost, "alice", "k1")
	atomic.StoreInt32(&status, http.StatusCreated)
	w := send(r, http.MethodPost, "alice", "k1")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, store.len())
}

func TestIdempotency_StoreFailure_FallsThrough(t *testing.T) {
	t.Parallel()

	var calls int32
	status := int32(http.StatusCreated)
	store := newMemoryResponseStore()
	store.loadErr = errors.New("connection refused")
	r := newIdempotentRouter(store, &calls, &status)

	w := send(r, http.MethodPost, "alice", "k1")

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotency_KeyTooLong(t *testing.T) {
	t.Parallel()

	var calls int32
	status := int32(http.StatusCreated)
	r := newIdempotentRouter(newMemoryResponseStore(), &calls, &status)

	w := send(r, http.MethodPost, "alice", strings.Repeat("k", maxIdempotencyKey+1))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestIdempotency_NilStoreDisabled(t *testing.T) {
	t.Parallel()

	var calls int32
	status := int32(http.StatusCreated)
	r := newIdempotentRouter(nil, &calls, &status)

	send(r, http.MethodPost, "alice", "k1")
	send(r, http.MethodPost, "alice", "k1")

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotency_ConcurrentDuplicate_Rejected(t *testing.T) {
	t.Parallel()

	var calls int32
	entered := make(chan struct{})
	release := make(chan struct{})

	r := gin.New()
	r.Use(IdempotencyMiddleware(newMemoryResponseStore(), nil))
	r.POST("/bookings", func(c *gin.Context) {
		atomic.AddInt32(&calls, 1)
		close(entered)
		<-release
		c.JSON(http.StatusCreated, gin.H{"id": "b1"})
	})

	first := make(chan *httptest.ResponseRecorder)
	go func() {
		first <- send(r, http.MethodPost, "", "k1")
	}()
	<-entered

	duplicate := send(r, http.MethodPost, "", "k1")
	assert.Equal(t, http.StatusConflict, duplicate.Code)

	close(release)
	assert.Equal(t, http.StatusCreated, (<-first).Code)

	replayed := send(r, http.MethodPost, "", "k1")
	assert.Equal(t, http.StatusCreated, replayed.Code)
	assert.Equal(t, "true", replayed.Header().Get(idempotencyReplayed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
