package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/threads/middleware"
	"github.com/cppla/threads/services"
	"github.com/cppla/threads/utils"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// Options are shared by every controller.
type Options struct {
	Logger   *zap.Logger
	CacheTTL time.Duration
}

type base struct {
	svc      *services.Services
	log      *zap.Logger
	cacheTTL time.Duration
}

func newBase(svc *services.Services, opts Options) base {
	l := opts.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return base{svc: svc, log: l, cacheTTL: opts.CacheTTL}
}

// parsePagination reads page/page_size, defaulting when absent. Range checks
// are left to the services; only non-numeric input is rejected here.
func parsePagination(ctx *gin.Context) (int, int, bool) {
	page, pageSize := defaultPage, defaultPageSize
	if v := strings.TrimSpace(ctx.Query("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40003, "page must be an integer")
			return 0, 0, false
		}
		page = n
	}
	if v := strings.TrimSpace(ctx.Query("page_size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40003, "page_size must be an integer")
			return 0, 0, false
		}
		pageSize = n
	}
	return page, pageSize, true
}

// fail maps a service error onto the response envelope and logs it once.
func (b base) fail(ctx *gin.Context, op string, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("request_id", ctx.GetString(utils.RequestIDKey)),
		zap.Error(err),
	}
	if id := ctx.Param("id"); id != "" {
		fields = append(fields, zap.String("id", id))
	}

	var nf *services.NotFoundError
	switch {
	case services.IsValidationError(err):
		b.log.Info("request rejected", fields...)
		utils.Error(ctx, http.StatusBadRequest, 40002, err.Error())
	case errors.As(err, &nf):
		b.log.Info("resource missing", fields...)
		utils.Error(ctx, http.StatusNotFound, notFoundCode(nf.Resource), err.Error())
	case services.IsForbidden(err):
		b.log.Warn("forbidden", fields...)
		utils.Error(ctx, http.StatusForbidden, 40301, "forbidden")
	default:
		b.log.Error("request failed", fields...)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "internal store error")
	}
}

func notFoundCode(resource string) int {
	switch resource {
	case "post":
		return 40401
	case "user":
		return 40402
	case "community":
		return 40403
	default:
		return 40400
	}
}

// currentUser resolves the onboarded profile behind the bearer token.
func (b base) currentUser(ctx *gin.Context) (*services.UserView, bool) {
	authID := ctx.GetString(middleware.ContextAuthIDKey)
	if authID == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return nil, false
	}
	u, err := b.svc.Users.FetchUserByAuthID(ctx.Request.Context(), authID)
	if err != nil {
		if services.IsNotFound(err) {
			utils.Error(ctx, http.StatusForbidden, 40310, "complete onboarding first")
			return nil, false
		}
		b.fail(ctx, "users.current", err)
		return nil, false
	}
	return u, true
}

// serveCached answers from Redis when key is cached. Otherwise load runs and a
// successful payload is stored under key.
func (b base) serveCached(ctx *gin.Context, op, key string, load func() (interface{}, error)) {
	if raw, ok := utils.CacheGetBytes(key); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", raw)
		return
	}
	data, err := load()
	if err != nil {
		b.fail(ctx, op, err)
		return
	}
	utils.CacheSetJSON(key, utils.JSONResponse{Code: 0, Message: "success", Data: data}, b.cacheTTL)
	utils.Success(ctx, data)
}
