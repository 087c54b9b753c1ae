package paygate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tachi-labs/paygate/schema"
)

type downLimiter struct{}

func (downLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (schema.RateLimitResult, error) {
	return schema.RateLimitResult{}, errors.New("store unavailable")
}

func testLimiterBoundary(t *testing.T, l RateLimiter) {
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		res, err := l.Check(ctx, "10.0.0.1:/a", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, 5, res.Limit)
		assert.Equal(t, 5-i, res.Remaining)
	}
	res, err := l.Check(ctx, "10.0.0.1:/a", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.True(t, res.ResetAt.After(time.Now()))

	// other keys have their own budget
	res, err = l.Check(ctx, "10.0.0.2:/a", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestUluleLimiter(t *testing.T) {
	testLimiterBoundary(t, NewUluleMemoryLimiter())
}

func TestKVLimiter(t *testing.T) {
	store, err := NewMemoryStore(time.Hour)
	require.NoError(t, err)
	defer store.Close()
	testLimiterBoundary(t, NewKVLimiter(store))
}

func TestKVLimiter_Slides(t *testing.T) {
	store, err := NewMemoryStore(time.Hour)
	require.NoError(t, err)
	defer store.Close()

	now := time.Now()
	l := NewKVLimiter(store)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		res, err := l.Check(context.Background(), "k", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, _ := l.Check(context.Background(), "k", 2, time.Minute)
	assert.False(t, res.Allowed)

	now = now.Add(61 * time.Second)
	res, err = l.Check(context.Background(), "k", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestTieredLimiter_Fallback(t *testing.T) {
	store, err := NewMemoryStore(time.Hour)
	require.NoError(t, err)
	defer store.Close()

	testLimiterBoundary(t, NewTieredLimiter(downLimiter{}, NewKVLimiter(store)))
}

func TestTieredLimiter_FailOpen(t *testing.T) {
	l := NewTieredLimiter(downLimiter{}, downLimiter{})
	for i := 0; i < 10; i++ {
		res, err := l.Check(context.Background(), "k", 1, time.Minute)
		assert.NoError(t, err)
		assert.True(t, res.Allowed)
	}
}

func TestNewStoreLimiter(t *testing.T) {
	mem, err := NewMemoryStore(time.Hour)
	require.NoError(t, err)
	defer mem.Close()
	l, err := NewStoreLimiter(mem)
	require.NoError(t, err)
	require.Len(t, l.tiers, 2)
	assert.IsType(t, &UluleLimiter{}, l.tiers[0])
	assert.IsType(t, &KVLimiter{}, l.tiers[1])

	bolt, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer bolt.Close()
	l, err = NewStoreLimiter(bolt)
	require.NoError(t, err)
	require.Len(t, l.tiers, 1)
	assert.IsType(t, &KVLimiter{}, l.tiers[0])
	testLimiterBoundary(t, l)
}

func TestClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	newCtx := func(headers map[string]string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.RemoteAddr = "192.0.2.1:1234"
		for k, v := range headers {
			c.Request.Header.Set(k, v)
		}
		return c
	}

	assert.Equal(t, "203.0.113.7", clientIP(newCtx(map[string]string{
		"CF-Connecting-IP": "203.0.113.7",
		"X-Forwarded-For":  "198.51.100.1",
	}), "CF-Connecting-IP"))
	assert.Equal(t, "198.51.100.1", clientIP(newCtx(map[string]string{
		"X-Forwarded-For": "198.51.100.1, 10.0.0.1",
	}), "CF-Connecting-IP"))
	assert.Equal(t, "192.0.2.1", clientIP(newCtx(nil), "CF-Connecting-IP"))
}
