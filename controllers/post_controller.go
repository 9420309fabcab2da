package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"
	"go.uber.org/zap"

	"github.com/cppla/threads/middleware"
	"github.com/cppla/threads/services"
	"github.com/cppla/threads/utils"
)

const rssItems = 30

type PostController struct {
	base
	siteURL string
}

func NewPostController(svc *services.Services, siteURL string, opts Options) *PostController {
	return &PostController{base: newBase(svc, opts), siteURL: siteURL}
}

type createPostRequest struct {
	Text      string `json:"text" binding:"required"`
	Community string `json:"community"`
	Path      string `json:"path"`
}

type replyRequest struct {
	Text string `json:"text" binding:"required"`
	Path string `json:"path"`
}

// ListFeed returns paginated top-level posts, newest first.
func (pc *PostController) ListFeed(ctx *gin.Context) {
	page, pageSize, ok := parsePagination(ctx)
	if !ok {
		return
	}
	key := fmt.Sprintf("%slist:%d:%d", cacheFeedPrefix, page, pageSize)
	pc.serveCached(ctx, "feed.list", key, func() (interface{}, error) {
		return pc.svc.Feed.FetchFeed(ctx.Request.Context(), page, pageSize)
	})
}

// GetPost returns one post with two levels of replies.
func (pc *PostController) GetPost(ctx *gin.Context) {
	id := ctx.Param("id")
	pc.serveCached(ctx, "posts.get", cachePostPrefix+id, func() (interface{}, error) {
		return pc.svc.Posts.FetchPostByID(ctx.Request.Context(), id)
	})
}

func (pc *PostController) CreatePost(ctx *gin.Context) {
	var req createPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid payload")
		return
	}
	me, ok := pc.currentUser(ctx)
	if !ok {
		return
	}
	post, err := pc.svc.Posts.CreatePost(ctx.Request.Context(), services.CreatePostParams{
		Text:      req.Text,
		AuthorID:  me.ID,
		Community: req.Community,
		Path:      req.Path,
	})
	if err != nil {
		pc.fail(ctx, "posts.create", err)
		return
	}
	pc.respondPost(ctx, "posts.create", post.ID.Hex())
}

func (pc *PostController) CreateReply(ctx *gin.Context) {
	var req replyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid payload")
		return
	}
	me, ok := pc.currentUser(ctx)
	if !ok {
		return
	}
	reply, err := pc.svc.Posts.AddReply(ctx.Request.Context(), services.ReplyParams{
		PostID:   ctx.Param("id"),
		Text:     req.Text,
		AuthorID: me.ID,
		Path:     req.Path,
	})
	if err != nil {
		pc.fail(ctx, "posts.reply", err)
		return
	}
	pc.respondPost(ctx, "posts.reply", reply.ID.Hex())
}

// DeletePost removes a post and its replies. Authors may delete their own
// posts; admins may delete any.
func (pc *PostController) DeletePost(ctx *gin.Context) {
	me, ok := pc.currentUser(ctx)
	if !ok {
		return
	}
	res, err := pc.svc.Posts.DeletePostTreeAs(ctx.Request.Context(), ctx.Param("id"), me.ID,
		ctx.GetString(middleware.ContextUsernameKey), ctx.Query("path"))
	if err != nil {
		pc.fail(ctx, "posts.delete", err)
		return
	}
	utils.Success(ctx, res)
}

// RSS renders the latest top-level posts as an RSS 2.0 document.
func (pc *PostController) RSS(ctx *gin.Context) {
	posts, err := pc.svc.Feed.Latest(ctx.Request.Context(), rssItems)
	if err != nil {
		pc.fail(ctx, "feed.rss", err)
		return
	}
	feed := &feeds.Feed{
		Title:       "threads",
		Link:        &feeds.Link{Href: pc.siteURL},
		Description: "latest threads",
		Created:     time.Now(),
	}
	for _, p := range posts {
		item := &feeds.Item{
			Id:          p.ID,
			Title:       excerpt(p.Text, 80),
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/api/v1/posts/%s", pc.siteURL, p.ID)},
			Description: utils.RenderMarkdown(p.Text),
			Created:     p.CreatedAt,
		}
		if p.Author != nil {
			item.Author = &feeds.Author{Name: p.Author.Username}
		}
		feed.Items = append(feed.Items, item)
	}
	rss, err := feed.ToRss()
	if err != nil {
		pc.log.Error("render rss", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50002, "render feed")
		return
	}
	ctx.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}

func (pc *PostController) respondPost(ctx *gin.Context, op, id string) {
	view, err := pc.svc.Posts.FetchPostByID(ctx.Request.Context(), id)
	if err != nil {
		pc.fail(ctx, op, err)
		return
	}
	utils.Created(ctx, view)
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
