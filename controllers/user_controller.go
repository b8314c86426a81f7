package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yapper/avatar"
	"github.com/cppla/yapper/middleware"
	"github.com/cppla/yapper/store"
	"github.com/cppla/yapper/utils"
	"github.com/cppla/yapper/views"
)

// UserController serves the profile page and avatar images.
type UserController struct {
	users    UserStore
	posts    PostStore
	replies  ReplyStore
	sessions *middleware.SessionManager
	avatars  AvatarGenerator
}

func NewUserController(users UserStore, posts PostStore, replies ReplyStore,
	sessions *middleware.SessionManager, avatars AvatarGenerator) *UserController {
	return &UserController{users: users, posts: posts, replies: replies, sessions: sessions, avatars: avatars}
}

// Profile shows the acting user's own posts.
func (u *UserController) Profile(ctx *gin.Context) {
	user, ok := actingUser(ctx, u.users, u.sessions)
	if !ok {
		return
	}
	posts, err := u.posts.ListByUsername(ctx.Request.Context(), user.Username)
	if err != nil {
		renderError(ctx, err)
		return
	}
	replies, err := u.replies.List(ctx.Request.Context())
	if err != nil {
		renderError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, views.ProfileTemplate, gin.H{
		"page": views.NewProfilePage(*user, posts, replies),
	})
}

// Avatar redirects to the user's avatar image, generating it on first request.
func (u *UserController) Avatar(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()
	user, err := u.users.GetByUsername(reqCtx, ctx.Param("username"))
	if errors.Is(err, store.ErrNotFound) {
		ctx.String(http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		utils.Sugar.Errorw("avatar lookup failed", "error", err)
		ctx.Status(http.StatusInternalServerError)
		return
	}

	url, err := u.avatars.EnsureAvatar(reqCtx, user.Username)
	if err != nil {
		if errors.Is(err, avatar.ErrInvalidName) {
			ctx.String(http.StatusNotFound, "User not found")
			return
		}
		utils.Sugar.Errorw("avatar generation failed", "username", user.Username, "error", err)
		ctx.Status(http.StatusInternalServerError)
		return
	}
	if user.AvatarURL != url {
		if err := u.users.UpdateAvatar(reqCtx, user.ID, url); err != nil {
			utils.Sugar.Warnw("avatar url not saved", "user_id", user.ID, "error", err)
		}
	}

	if !strings.Contains(url, "://") && !strings.HasPrefix(url, "/") {
		url = "/" + url
	}
	ctx.Redirect(http.StatusFound, url)
}
