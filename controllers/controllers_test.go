package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cppla/threads/services"
	"github.com/cppla/threads/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return ctx, w
}

func readEnvelope(t *testing.T, w *httptest.ResponseRecorder) utils.JSONResponse {
	t.Helper()
	var env utils.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query    string
		ok       bool
		page     int
		pageSize int
	}{
		{"", true, 1, 20},
		{"?page=3&page_size=50", true, 3, 50},
		{"?page=0&page_size=-1", true, 0, -1},
		{"?page=x", false, 0, 0},
		{"?page_size=1.5", false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			ctx, w := testContext("/feed" + tt.query)
			page, size, ok := parsePagination(ctx)
			require.Equal(t, tt.ok, ok)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Equal(t, 40003, readEnvelope(t, w).Code)
				return
			}
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.pageSize, size)
		})
	}
}

func TestFailMapsServiceErrors(t *testing.T) {
	b := newBase(nil, Options{})
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"validation", services.NewValidationError("text", "is required"), http.StatusBadRequest, 40002},
		{"post", services.NewNotFoundError("post", "1"), http.StatusNotFound, 40401},
		{"user", services.NewNotFoundError("user", "1"), http.StatusNotFound, 40402},
		{"community", services.NewNotFoundError("community", "go"), http.StatusNotFound, 40403},
		{"wrapped not found", fmt.Errorf("load: %w", services.NewNotFoundError("post", "1")), http.StatusNotFound, 40401},
		{"forbidden", services.ErrForbidden, http.StatusForbidden, 40301},
		{"store", errors.New("connection reset"), http.StatusInternalServerError, 50001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, w := testContext("/x")
			b.fail(ctx, "test", tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, readEnvelope(t, w).Code)
		})
	}
}

func TestFailHidesStoreDetails(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	b := newBase(nil, Options{Logger: zap.New(core)})
	ctx, w := testContext("/x")
	ctx.Set(utils.RequestIDKey, "rid-1")

	b.fail(ctx, "posts.create", errors.New("E11000 secret index detail"))

	env := readEnvelope(t, w)
	assert.NotContains(t, env.Message, "E11000")
	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "rid-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "posts.create", entries[0].ContextMap()["op"])
}

func TestCacheInvalidationHookLogsMutation(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	hook := CacheInvalidationHook(zap.New(core))

	// No Redis configured: invalidation is a no-op but the event is still logged.
	hook(context.Background(), services.MutationEvent{
		Op:      services.OpReply,
		Path:    "/thread/abc",
		PostIDs: []string{"a", "b"},
	})

	entries := logs.FilterMessage("mutation committed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, services.OpReply, fields["op"])
	assert.Equal(t, "/thread/abc", fields["path"])
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("short", 10))
	assert.Equal(t, "héll...", excerpt("héllo world", 4))
}
