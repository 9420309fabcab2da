package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/threads/middleware"
	"github.com/cppla/threads/services"
	"github.com/cppla/threads/utils"
)

type AdminController struct {
	base
}

func NewAdminController(svc *services.Services, opts Options) *AdminController {
	return &AdminController{base: newBase(svc, opts)}
}

func (ac *AdminController) isAdmin(ctx *gin.Context) bool {
	return ac.svc.IsAdmin(ctx.GetString(middleware.ContextUsernameKey))
}

// Repair rebuilds every back-reference list from the posts collection.
func (ac *AdminController) Repair(ctx *gin.Context) {
	if !ac.isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40301, "forbidden")
		return
	}
	report, err := ac.svc.Maintenance.RebuildReferences(ctx.Request.Context(), ctx.Query("path"))
	if err != nil {
		ac.fail(ctx, "admin.repair", err)
		return
	}
	ac.log.Info("references rebuilt",
		zap.String("by", ctx.GetString(middleware.ContextUsernameKey)),
		zap.Int("posts", report.Posts),
		zap.Int("users", report.Users),
		zap.Int("communities", report.Communities),
	)
	utils.Success(ctx, report)
}
