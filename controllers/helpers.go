package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yapper/middleware"
	"github.com/cppla/yapper/models"
	"github.com/cppla/yapper/store"
	"github.com/cppla/yapper/utils"
	"github.com/cppla/yapper/views"
)

// UserStore is the user persistence the handlers rely on.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByHashedExternalID(ctx context.Context, hashed string) (*models.User, error)
	UpdateAvatar(ctx context.Context, id uint, url string) error
}

type PostStore interface {
	Create(ctx context.Context, p *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, sort store.SortOption) ([]models.Post, error)
	ListByUsername(ctx context.Context, username string) ([]models.Post, error)
	UpdateContent(ctx context.Context, id uint, content string) error
	IncrementLikes(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

type ReplyStore interface {
	Create(ctx context.Context, r *models.Reply) error
	GetByID(ctx context.Context, id uint) (*models.Reply, error)
	List(ctx context.Context) ([]models.Reply, error)
	IncrementLikes(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

// AvatarGenerator produces the avatar URL for a username.
type AvatarGenerator interface {
	EnsureAvatar(ctx context.Context, username string) (string, error)
}

// render adds the values every page expects to data.
func render(ctx *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["appName"] = ctx.GetString(middleware.ContextAppNameKey)
	data["loggedIn"] = ctx.GetBool(middleware.ContextLoggedInKey)
	data["copyrightYear"] = time.Now().Year()
	ctx.HTML(status, name, data)
}

func renderError(ctx *gin.Context, err error) {
	render(ctx, http.StatusInternalServerError, views.ErrorTemplate, gin.H{"message": "We could not complete your request."})
	utils.Sugar.Errorw("request failed", "route", ctx.FullPath(), "method", ctx.Request.Method, "error", err)
	ctx.Abort()
}

func redirectHome(ctx *gin.Context) {
	utils.Redirect(ctx, "/")
}

// parseID reads a positive numeric path parameter.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// actingUser loads the logged in user. A session pointing at a deleted user is
// cleared and sent to the login page; false means a response was written.
func actingUser(ctx *gin.Context, users UserStore, sessions *middleware.SessionManager) (*models.User, bool) {
	id, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Redirect(ctx, "/login")
		return nil, false
	}
	u, err := users.GetByID(ctx.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		_ = sessions.Logout(ctx)
		utils.Redirect(ctx, "/login")
		return nil, false
	}
	if err != nil {
		renderError(ctx, err)
		return nil, false
	}
	return u, true
}

// handleTargetErr maps a failed target lookup or write; absent targets go home.
func handleTargetErr(ctx *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		redirectHome(ctx)
		return
	}
	renderError(ctx, err)
}
