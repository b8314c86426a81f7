package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yapper/middleware"
	"github.com/cppla/yapper/models"
	"github.com/cppla/yapper/store"
	"github.com/cppla/yapper/views"
)

// PostController manages posts and their replies.
// Only owners may edit or delete; only non-owners may like.
type PostController struct {
	users        UserStore
	posts        PostStore
	replies      ReplyStore
	sessions     *middleware.SessionManager
	emojiEnabled bool
}

// NewPostController creates a new PostController instance.
func NewPostController(users UserStore, posts PostStore, replies ReplyStore,
	sessions *middleware.SessionManager, emojiEnabled bool) *PostController {
	return &PostController{users: users, posts: posts, replies: replies, sessions: sessions, emojiEnabled: emojiEnabled}
}

type contentForm struct {
	Content string `form:"content" binding:"required,max=10000"`
}

// Home lists every post with its replies, sorted by the option query param.
func (p *PostController) Home(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()
	sort := store.ParseSortOption(ctx.Query("option"))

	posts, err := p.posts.List(reqCtx, sort)
	if err != nil {
		renderError(ctx, err)
		return
	}
	replies, err := p.replies.List(reqCtx)
	if err != nil {
		renderError(ctx, err)
		return
	}

	var viewer *models.User
	if id, ok := middleware.CurrentUserID(ctx); ok {
		viewer, err = p.users.GetByID(reqCtx, id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			renderError(ctx, err)
			return
		}
	}

	render(ctx, http.StatusOK, views.HomeTemplate, gin.H{
		"page": views.NewHomePage(viewer, posts, replies, string(sort), p.emojiEnabled),
	})
}

// CreatePost publishes a post owned by the acting user.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var form struct {
		Title   string `form:"title" binding:"required,max=255"`
		Content string `form:"content" binding:"required,max=10000"`
	}
	if err := ctx.ShouldBind(&form); err != nil {
		redirectHome(ctx)
		return
	}
	user, ok := actingUser(ctx, p.users, p.sessions)
	if !ok {
		return
	}
	title := strings.TrimSpace(form.Title)
	if title == "" {
		redirectHome(ctx)
		return
	}

	post := &models.Post{Title: title, Content: form.Content, Username: user.Username}
	if err := p.posts.Create(ctx.Request.Context(), post); err != nil {
		renderError(ctx, err)
		return
	}
	redirectHome(ctx)
}

// EditPost replaces the content of the acting user's own post.
func (p *PostController) EditPost(ctx *gin.Context) {
	id, ok := parseID(ctx, "postId")
	if !ok {
		redirectHome(ctx)
		return
	}
	var form contentForm
	if err := ctx.ShouldBind(&form); err != nil {
		redirectHome(ctx)
		return
	}
	user, ok := actingUser(ctx, p.users, p.sessions)
	if !ok {
		return
	}
	post, err := p.posts.GetByID(ctx.Request.Context(), id)
	if err != nil {
		handleTargetErr(ctx, err)
		return
	}
	if post.Username == user.Username {
		if err := p.posts.UpdateContent(ctx.Request.Context(), id, form.Content); err != nil {
			handleTargetErr(ctx, err)
			return
		}
	}
	redirectHome(ctx)
}

// LikePost adds a like unless the acting user owns the post.
func (p *PostController) LikePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		redirectHome(ctx)
		return
	}
	user, ok := actingUser(ctx, p.users, p.sessions)
	if !ok {
		return
	}
	post, err := p.posts.GetByID(ctx.Request.Context(), id)
	if err != nil {
		handleTargetErr(ctx, err)
		return
	}
	if post.Username != user.Username {
		if err := p.posts.IncrementLikes(ctx.Request.Context(), id); err != nil {
			handleTargetErr(ctx, err)
			return
		}
	}
	redirectHome(ctx)
}

// DeletePost removes the acting user's own post.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		redirectHome(ctx)
		return
	}
	user, ok := actingUser(ctx, p.users, p.sessions)
	if !ok {
		return
	}
	post, err := p.posts.GetByID(ctx.Request.Context(), id)
	if err != nil {
		handleTargetErr(ctx, err)
		return
	}
	if post.Username == user.Username {
		if err := p.posts.Delete(ctx.Request.Context(), id); err != nil {
			handleTargetErr(ctx, err)
			return
		}
	}
	redirectHome(ctx)
}

// ReplyPost answers an existing post.
func (p *PostController) ReplyPost(ctx *gin.Context) {
	postID, ok := parseID(ctx, "postId")
	if !ok {
		redirectHome(ctx)
		return
	}
	var form contentForm
	if err := ctx.ShouldBind(&form); err != nil {
		redirectHome(ctx)
		return
	}
	user, ok := actingUser(ctx, p.users, p.sessions)
	if !ok {
		return
	}
	if _, err := p.posts.GetByID(ctx.Request.Context(), postID); err != nil {
		handleTargetErr(ctx, err)
		return
	}

	reply := &models.Reply{OriginalPostID: postID, Content: form.Content, Username: user.Username}
	if err := p.replies.Create(ctx.Request.Context(), reply); err != nil {
		renderError(ctx, err)
		return
	}
	redirectHome(ctx)
}

// LikeReply adds a like unless the acting user wrote the reply.
func (p *PostController) LikeReply(ctx *gin.Context) {
	id, ok := parseID(ctx, "replyId")
	if !ok {
		redirectHome(ctx)
		return
	}
	user, ok := actingUser(ctx, p.users, p.sessions)
	if !ok {
		return
	}
	reply, err := p.replies.GetByID(ctx.Request.Context(), id)
	if err != nil {
		handleTargetErr(ctx, err)
		return
	}
	if reply.Username != user.Username {
		if err := p.replies.IncrementLikes(ctx.Request.Context(), id); err != nil {
			handleTargetErr(ctx, err)
			return
		}
	}
	redirectHome(ctx)
}

// DeleteReply removes the acting user's own reply.
func (p *PostController) DeleteReply(ctx *gin.Context) {
	id, ok := parseID(ctx, "replyId")
	if !ok {
		redirectHome(ctx)
		return
	}
	user, ok := actingUser(ctx, p.users, p.sessions)
	if !ok {
		return
	}
	reply, err := p.replies.GetByID(ctx.Request.Context(), id)
	if err != nil {
		handleTargetErr(ctx, err)
		return
	}
	if reply.Username == user.Username {
		if err := p.replies.Delete(ctx.Request.Context(), id); err != nil {
			handleTargetErr(ctx, err)
			return
		}
	}
	redirectHome(ctx)
}
