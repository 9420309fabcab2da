package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/threads/repository"
	"github.com/cppla/threads/services"
	"github.com/cppla/threads/utils"
)

type CommunityController struct {
	base
}

func NewCommunityController(svc *services.Services, opts Options) *CommunityController {
	return &CommunityController{base: newBase(svc, opts)}
}

type createCommunityRequest struct {
	Name     string `json:"name" binding:"required"`
	Slug     string `json:"slug"`
	Username string `json:"username"`
	Image    string `json:"image"`
	Bio      string `json:"bio"`
	Path     string `json:"path"`
}

type membershipRequest struct {
	Path string `json:"path"`
}

func (cc *CommunityController) List(ctx *gin.Context) {
	page, pageSize, ok := parsePagination(ctx)
	if !ok {
		return
	}
	q, sort := ctx.Query("q"), ctx.Query("sort")
	key := fmt.Sprintf("%slist:%s:%s:%d:%d", cacheCommunityPrefix, q, sort, page, pageSize)
	cc.serveCached(ctx, "communities.list", key, func() (interface{}, error) {
		return cc.svc.Communities.SearchCommunities(ctx.Request.Context(), services.SearchCommunitiesParams{
			Query:    q,
			Page:     page,
			PageSize: pageSize,
			Sort:     repository.ParseSortOrder(sort),
		})
	})
}

// Get accepts an id or a slug.
func (cc *CommunityController) Get(ctx *gin.Context) {
	ref := ctx.Param("id")
	cc.serveCached(ctx, "communities.get", cacheCommunityPrefix+ref, func() (interface{}, error) {
		return cc.svc.Communities.FetchCommunity(ctx.Request.Context(), ref)
	})
}

func (cc *CommunityController) Posts(ctx *gin.Context) {
	ref := ctx.Param("id")
	cc.serveCached(ctx, "communities.posts", cacheCommunityPrefix+ref+":posts", func() (interface{}, error) {
		return cc.svc.Communities.FetchCommunityPosts(ctx.Request.Context(), ref)
	})
}

func (cc *CommunityController) Create(ctx *gin.Context) {
	var req createCommunityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid payload")
		return
	}
	me, ok := cc.currentUser(ctx)
	if !ok {
		return
	}
	view, err := cc.svc.Communities.CreateCommunity(ctx.Request.Context(), services.CreateCommunityParams{
		Slug:      req.Slug,
		Name:      req.Name,
		Username:  req.Username,
		Image:     req.Image,
		Bio:       req.Bio,
		CreatorID: me.ID,
		Path:      req.Path,
	})
	if err != nil {
		cc.fail(ctx, "communities.create", err)
		return
	}
	utils.Created(ctx, view)
}

func (cc *CommunityController) Join(ctx *gin.Context) {
	cc.membership(ctx, true)
}

func (cc *CommunityController) Leave(ctx *gin.Context) {
	cc.membership(ctx, false)
}

func (cc *CommunityController) membership(ctx *gin.Context, join bool) {
	var req membershipRequest
	// The body is optional.
	_ = ctx.ShouldBindJSON(&req)
	me, ok := cc.currentUser(ctx)
	if !ok {
		return
	}
	in := services.MembershipParams{Community: ctx.Param("id"), UserID: me.ID, Path: req.Path}
	op := "communities.join"
	var err error
	if join {
		err = cc.svc.Communities.AddMember(ctx.Request.Context(), in)
	} else {
		op = "communities.leave"
		err = cc.svc.Communities.RemoveMember(ctx.Request.Context(), in)
	}
	if err != nil {
		cc.fail(ctx, op, err)
		return
	}
	view, err := cc.svc.Communities.FetchCommunity(ctx.Request.Context(), in.Community)
	if err != nil {
		cc.fail(ctx, op, err)
		return
	}
	utils.Success(ctx, view)
}
