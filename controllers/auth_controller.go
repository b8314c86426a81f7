package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cppla/yapper/cache"
	"github.com/cppla/yapper/identity"
	"github.com/cppla/yapper/middleware"
	"github.com/cppla/yapper/models"
	"github.com/cppla/yapper/store"
	"github.com/cppla/yapper/utils"
	"github.com/cppla/yapper/views"
)

const (
	oauthStatePrefix = "oauth:state:"
	oauthStateTTL    = 10 * time.Minute

	msgUsernameNotFound = "Username was not found"
	msgUsernameTaken    = "Username already exists"
	msgUsernameInvalid  = "Username must be 1-32 letters, digits, '-' or '_'"
	msgLocalLoginOff    = "Sign in with a provider"
)

// AuthController handles login through external identity providers, username
// registration and logout.
type AuthController struct {
	users      UserStore
	resolver   *identity.Resolver
	providers  identity.Providers
	sessions   *middleware.SessionManager
	avatars    AvatarGenerator
	states     cache.Cache
	localLogin bool
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(users UserStore, providers identity.Providers, sessions *middleware.SessionManager,
	avatars AvatarGenerator, states cache.Cache, localLogin bool) *AuthController {
	utils.RegisterValidators()
	return &AuthController{
		users:      users,
		resolver:   identity.NewResolver(users),
		providers:  providers,
		sessions:   sessions,
		avatars:    avatars,
		states:     states,
		localLogin: localLogin,
	}
}

func (a *AuthController) loginPage(ctx *gin.Context, data gin.H) {
	_, githubErr := a.providers.Get("github")
	data["localLogin"] = a.localLogin
	data["githubEnabled"] = githubErr == nil
	render(ctx, http.StatusOK, views.LoginRegisterTemplate, data)
}

// LoginPage shows the sign-in options and any login error.
func (a *AuthController) LoginPage(ctx *gin.Context) {
	a.loginPage(ctx, gin.H{"loginError": ctx.Query("error")})
}

// RegisterPage is the same page carrying a registration error.
func (a *AuthController) RegisterPage(ctx *gin.Context) {
	a.loginPage(ctx, gin.H{"regError": ctx.Query("error")})
}

// RegisterUsernamePage asks a verified but unregistered visitor for a display name.
func (a *AuthController) RegisterUsernamePage(ctx *gin.Context) {
	if a.sessions.Pending(ctx) == "" {
		utils.Redirect(ctx, "/login")
		return
	}
	render(ctx, http.StatusOK, views.RegisterUsernameTemplate, gin.H{"regError": ctx.Query("error")})
}

// Login signs in by username alone when local login is enabled.
func (a *AuthController) Login(ctx *gin.Context) {
	if !a.localLogin {
		utils.RedirectWithError(ctx, "/login", msgLocalLoginOff)
		return
	}
	var form struct {
		Username string `form:"loginUsername" binding:"required"`
	}
	if err := ctx.ShouldBind(&form); err != nil {
		utils.RedirectWithError(ctx, "/login", msgUsernameNotFound)
		return
	}

	u, err := a.users.GetByUsername(ctx.Request.Context(), strings.TrimSpace(form.Username))
	if errors.Is(err, store.ErrNotFound) {
		utils.RedirectWithError(ctx, "/login", msgUsernameNotFound)
		return
	}
	if err != nil {
		renderError(ctx, err)
		return
	}
	if _, err := a.avatars.EnsureAvatar(ctx.Request.Context(), u.Username); err != nil {
		utils.Sugar.Warnw("avatar generation failed", "username", u.Username, "error", err)
	}
	a.completeLogin(ctx, u)
}

// RegisterUsername creates the account for the pending pseudonymous id.
func (a *AuthController) RegisterUsername(ctx *gin.Context) {
	pending := a.sessions.Pending(ctx)
	if pending == "" {
		utils.Redirect(ctx, "/login")
		return
	}
	var form struct {
		Username string `form:"regUsername" binding:"required,username"`
	}
	if err := ctx.ShouldBind(&form); err != nil {
		utils.RedirectWithError(ctx, "/registerUsername", msgUsernameInvalid)
		return
	}
	reqCtx := ctx.Request.Context()

	// the id may have registered in another tab since the callback
	if existing, err := a.resolver.FindUser(reqCtx, pending); err != nil {
		renderError(ctx, err)
		return
	} else if existing != nil {
		a.completeLogin(ctx, existing)
		return
	}

	if _, err := a.users.GetByUsername(reqCtx, form.Username); err == nil {
		utils.RedirectWithError(ctx, "/registerUsername", msgUsernameTaken)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		renderError(ctx, err)
		return
	}

	avatarURL, err := a.avatars.EnsureAvatar(reqCtx, form.Username)
	if err != nil {
		// served lazily by /avatar/:username later
		utils.Sugar.Warnw("avatar generation failed", "username", form.Username, "error", err)
	}

	u := &models.User{Username: form.Username, HashedExternalID: pending, AvatarURL: avatarURL}
	if err := a.users.Create(reqCtx, u); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			utils.RedirectWithError(ctx, "/registerUsername", msgUsernameTaken)
			return
		}
		renderError(ctx, err)
		return
	}
	utils.Sugar.Infow("user registered", "user_id", u.ID, "username", u.Username)
	a.completeLogin(ctx, u)
}

// OAuthRedirect sends the visitor to the provider's consent page.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	provider, err := a.providers.Get(ctx.Param("provider"))
	if err != nil {
		render(ctx, http.StatusNotFound, views.ErrorTemplate, gin.H{"message": "Unknown login provider."})
		return
	}

	state := uuid.NewString()
	a.states.Set(ctx.Request.Context(), oauthStatePrefix+state, []byte(provider.Name()), oauthStateTTL)
	ctx.Redirect(http.StatusFound, provider.AuthCodeURL(state))
}

// OAuthCallback verifies the state, resolves the provider subject and either
// logs the user in or starts username registration.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider, err := a.providers.Get(ctx.Param("provider"))
	if err != nil {
		utils.Redirect(ctx, "/error")
		return
	}
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Redirect(ctx, "/error")
		return
	}
	owner, ok := a.states.Take(ctx.Request.Context(), oauthStatePrefix+state)
	if !ok || string(owner) != provider.Name() {
		utils.Sugar.Warnw("oauth state rejected", "provider", provider.Name())
		utils.Redirect(ctx, "/error")
		return
	}

	subject, err := provider.Subject(ctx.Request.Context(), code)
	if err != nil {
		utils.Sugar.Errorw("oauth exchange failed", "provider", provider.Name(), "error", err)
		utils.Redirect(ctx, "/error")
		return
	}

	hashed := identity.HashExternalID(subject)
	u, err := a.resolver.FindUser(ctx.Request.Context(), hashed)
	if err != nil {
		utils.Sugar.Errorw("resolve identity failed", "provider", provider.Name(), "error", err)
		utils.Redirect(ctx, "/error")
		return
	}
	if u == nil {
		if err := a.sessions.SetPending(ctx, hashed); err != nil {
			renderError(ctx, err)
			return
		}
		utils.Redirect(ctx, "/registerUsername")
		return
	}
	a.completeLogin(ctx, u)
}

// Logout ends the session and shows the provider logout page.
func (a *AuthController) Logout(ctx *gin.Context) {
	if err := a.sessions.Logout(ctx); err != nil {
		utils.Sugar.Warnw("clear session failed", "error", err)
	}
	utils.Redirect(ctx, "/googleLogout")
}

func (a *AuthController) ProviderLogout(ctx *gin.Context) {
	render(ctx, http.StatusOK, views.ProviderLogoutTemplate, gin.H{"regError": ctx.Query("error")})
}

func (a *AuthController) LogoutCallback(ctx *gin.Context) {
	redirectHome(ctx)
}

func (a *AuthController) ErrorPage(ctx *gin.Context) {
	render(ctx, http.StatusOK, views.ErrorTemplate, nil)
}

func (a *AuthController) completeLogin(ctx *gin.Context, u *models.User) {
	if err := a.sessions.Login(ctx, u.ID); err != nil {
		renderError(ctx, err)
		return
	}
	redirectHome(ctx)
}
