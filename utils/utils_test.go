package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken("secret", "auth|1", "alice", time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "auth|1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)

	_, err = ParseToken("other", tok)
	assert.Error(t, err)

	expired, err := GenerateToken("secret", "auth|1", "alice", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("secret", expired)
	assert.Error(t, err)

	noSubject, err := GenerateToken("secret", "", "alice", time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("secret", noSubject)
	assert.Error(t, err)
}

func TestRevokeToken(t *testing.T) {
	assert.False(t, IsTokenRevoked("tok-a"))
	RevokeToken("tok-a", time.Now().Add(time.Minute))
	assert.True(t, IsTokenRevoked("tok-a"))

	RevokeToken("tok-b", time.Now().Add(-time.Minute))
	assert.False(t, IsTokenRevoked("tok-b"))
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, UniqueStrings([]string{" a", "b", "", "a "}))
	assert.Equal(t, []string{}, UniqueStrings(nil))
}

func TestSanitizeAndMarkdown(t *testing.T) {
	assert.Equal(t, "hi", Sanitize(`<script>alert(1)</script>hi`))
	html := RenderMarkdown("**bold** <script>x</script>")
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.NotContains(t, html, "<script>")
}

func TestCacheDisabledWithoutRedis(t *testing.T) {
	_, ok := CacheGetBytes("missing")
	assert.False(t, ok)
	CacheSetJSON("k", map[string]int{"a": 1}, 0)
	InvalidateByPrefix("k")
}

func TestScanDeleteStopsOnDeadline(t *testing.T) {
	rc := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- scanDelete(ctx, rc, "feed:*") }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scanDelete did not return")
	}
}

func TestRecoveryWithZap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Ginzap(zap.NewNop(), time.RFC3339, true), RecoveryWithZap(zap.NewNop(), true))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":50000`)
}

func TestNewRollingFileLogger(t *testing.T) {
	_, err := NewRollingFileLogger("", "info", 1, 1, 1, false)
	assert.Error(t, err)

	l, err := NewRollingFileLogger(t.TempDir()+"/logs/gin.log", "debug", 1, 1, 1, false)
	require.NoError(t, err)
	l.Info("hello")
	require.NoError(t, l.Sync())
}
