package routes

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/yapper/cache"
	"github.com/cppla/yapper/config"
	"github.com/cppla/yapper/controllers"
	"github.com/cppla/yapper/identity"
	"github.com/cppla/yapper/middleware"
	"github.com/cppla/yapper/store"
	"github.com/cppla/yapper/utils"
	"github.com/cppla/yapper/views"
)

// Dependencies are the long-lived services the router hands to controllers.
type Dependencies struct {
	Config    config.AppConfig
	DB        *gorm.DB
	Cache     cache.Cache
	Providers identity.Providers
	Avatars   controllers.AvatarGenerator
	// AccessLog receives gin request logs; nil uses utils.Logger.
	AccessLog *zap.Logger
	// EmojiClient calls the emoji API; nil uses a client with a short timeout.
	EmojiClient *http.Client
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	utils.RegisterValidators()

	tmpl, err := views.Load()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)

	accessLog := deps.AccessLog
	if accessLog == nil {
		accessLog = utils.Logger
	}
	r.Use(ginzap.Ginzap(accessLog, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(accessLog, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.Metrics())

	sessions := middleware.NewSessionManager(cfg.SessionSecret, time.Duration(cfg.SessionMaxAgeHrs)*time.Hour, cfg.SessionSecure)
	r.Use(middleware.Locals(sessions, cfg.AppName))

	if cfg.AvatarS3Bucket == "" && cfg.AvatarURLPrefix != "" {
		r.Static("/"+cfg.AvatarURLPrefix, cfg.AvatarDir)
	}
	r.Static("/css", "./public/css")

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	users := store.NewUserStore(deps.DB, deps.Cache)
	posts := store.NewPostStore(deps.DB)
	replies := store.NewReplyStore(deps.DB)

	emojiController := controllers.NewEmojiController(cfg.EmojiAPIKey, cfg.EmojiAPIBase, deps.EmojiClient, deps.Cache)
	authController := controllers.NewAuthController(users, deps.Providers, sessions, deps.Avatars, deps.Cache, cfg.LocalLoginEnabled)
	postController := controllers.NewPostController(users, posts, replies, sessions, emojiController.Enabled())
	userController := controllers.NewUserController(users, posts, replies, sessions, deps.Avatars)

	r.GET("/", postController.Home)
	r.GET("/login", authController.LoginPage)
	r.GET("/register", authController.RegisterPage)
	r.GET("/registerUsername", authController.RegisterUsernamePage)
	r.GET("/error", authController.ErrorPage)
	r.GET("/googleLogout", authController.ProviderLogout)
	r.GET("/logoutCallback", authController.LogoutCallback)
	r.GET("/avatar/:username", userController.Avatar)

	limited := r.Group("")
	limited.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	limited.POST("/login", authController.Login)
	limited.POST("/registerUsername", authController.RegisterUsername)
	limited.POST("/register", authController.RegisterUsername)
	limited.GET("/auth/:provider", authController.OAuthRedirect)
	limited.GET("/auth/:provider/callback", authController.OAuthCallback)
	limited.GET("/emojis", emojiController.Search)

	protected := r.Group("")
	protected.Use(middleware.AuthRequired(sessions))
	protected.GET("/logout", authController.Logout)
	protected.GET("/profile", userController.Profile)
	protected.POST("/posts", postController.CreatePost)
	protected.POST("/edit/:postId", postController.EditPost)
	protected.POST("/like/:id", postController.LikePost)
	protected.POST("/delete/:id", postController.DeletePost)
	protected.POST("/replyPost/:postId", postController.ReplyPost)
	protected.POST("/likeReply/:replyId", postController.LikeReply)
	protected.POST("/deleteReply/:replyId", postController.DeleteReply)

	r.NoRoute(func(ctx *gin.Context) {
		ctx.HTML(http.StatusNotFound, views.ErrorTemplate, gin.H{
			"appName":  cfg.AppName,
			"loggedIn": ctx.GetBool(middleware.ContextLoggedInKey),
			"message":  "Page not found.",
		})
	})

	return r, nil
}
