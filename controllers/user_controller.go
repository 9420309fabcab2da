package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/threads/middleware"
	"github.com/cppla/threads/repository"
	"github.com/cppla/threads/services"
	"github.com/cppla/threads/utils"
)

type UserController struct {
	base
}

func NewUserController(svc *services.Services, opts Options) *UserController {
	return &UserController{base: newBase(svc, opts)}
}

type updateMeRequest struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
	Path     string `json:"path"`
}

func (uc *UserController) GetUser(ctx *gin.Context) {
	id := ctx.Param("id")
	uc.serveCached(ctx, "users.get", cacheUserPrefix+id+":profile", func() (interface{}, error) {
		return uc.svc.Users.FetchUser(ctx.Request.Context(), id)
	})
}

// ListUserPosts returns the user's top-level posts with one level of replies.
func (uc *UserController) ListUserPosts(ctx *gin.Context) {
	id := ctx.Param("id")
	uc.serveCached(ctx, "users.posts", cacheUserPrefix+id+":posts", func() (interface{}, error) {
		return uc.svc.Users.FetchUserPosts(ctx.Request.Context(), id)
	})
}

func (uc *UserController) SearchUsers(ctx *gin.Context) {
	page, pageSize, ok := parsePagination(ctx)
	if !ok {
		return
	}
	me, ok := uc.currentUser(ctx)
	if !ok {
		return
	}
	res, err := uc.svc.Users.SearchUsers(ctx.Request.Context(), services.SearchUsersParams{
		CallerID: me.ID,
		Query:    ctx.Query("q"),
		Page:     page,
		PageSize: pageSize,
		Sort:     repository.ParseSortOrder(ctx.Query("sort")),
	})
	if err != nil {
		uc.fail(ctx, "users.search", err)
		return
	}
	utils.Success(ctx, res)
}

// Activity lists replies other users left on the caller's posts.
func (uc *UserController) Activity(ctx *gin.Context) {
	me, ok := uc.currentUser(ctx)
	if !ok {
		return
	}
	items, err := uc.svc.Users.GetActivity(ctx.Request.Context(), me.ID)
	if err != nil {
		uc.fail(ctx, "users.activity", err)
		return
	}
	utils.Success(ctx, items)
}

func (uc *UserController) Me(ctx *gin.Context) {
	me, ok := uc.currentUser(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, me)
}

// UpdateMe onboards the caller or edits their profile.
func (uc *UserController) UpdateMe(ctx *gin.Context) {
	var req updateMeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid payload")
		return
	}
	view, err := uc.svc.Users.UpdateUser(ctx.Request.Context(), services.UpdateUserParams{
		AuthID:   ctx.GetString(middleware.ContextAuthIDKey),
		Username: req.Username,
		Name:     req.Name,
		Bio:      req.Bio,
		Image:    req.Image,
		Path:     req.Path,
	})
	if err != nil {
		uc.fail(ctx, "users.update", err)
		return
	}
	utils.Success(ctx, view)
}

// RevokeToken blacklists the bearer token until it would have expired.
func (uc *UserController) RevokeToken(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expires := time.Now().Add(24 * time.Hour)
	if v, ok := ctx.Get(middleware.ContextClaimsKey); ok {
		if claims, ok := v.(*utils.Claims); ok && claims.ExpiresAt != nil {
			expires = claims.ExpiresAt.Time
		}
	}
	utils.RevokeToken(token, expires)
	utils.Success(ctx, gin.H{"revoked": true})
}
