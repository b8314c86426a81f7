package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextLoggedInKey mirrors the session's logged-in flag for templates.
	ContextLoggedInKey = "loggedIn"
	// ContextAppNameKey carries the application name for templates.
	ContextAppNameKey = "appName"

	sessionName      = "yapper_session"
	sessionUserID    = "user_id"
	sessionLoggedIn  = "logged_in"
	sessionPendingID = "hashed_external_id"
)

// SessionManager keeps login state in a signed cookie.
type SessionManager struct {
	store *sessions.CookieStore
}

// NewSessionManager returns a manager signing cookies with secret.
// A zero maxAge keeps the cookie for the browser session only.
func NewSessionManager(secret string, maxAge time.Duration, secure bool) *SessionManager {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	// the codecs enforce the same limit on the signed timestamp
	store.MaxAge(int(maxAge.Seconds()))
	return &SessionManager{store: store}
}

// get never fails: a tampered or expired cookie yields a fresh session.
func (m *SessionManager) get(ctx *gin.Context) *sessions.Session {
	s, err := m.store.Get(ctx.Request, sessionName)
	if err != nil {
		s, _ = m.store.New(ctx.Request, sessionName)
	}
	return s
}

// UserID returns the logged in user's id.
func (m *SessionManager) UserID(ctx *gin.Context) (uint, bool) {
	s := m.get(ctx)
	if loggedIn, _ := s.Values[sessionLoggedIn].(bool); !loggedIn {
		return 0, false
	}
	id, ok := s.Values[sessionUserID].(uint)
	return id, ok && id != 0
}

// Login marks the session authenticated and drops any pending registration.
func (m *SessionManager) Login(ctx *gin.Context, userID uint) error {
	s := m.get(ctx)
	s.Values[sessionUserID] = userID
	s.Values[sessionLoggedIn] = true
	delete(s.Values, sessionPendingID)
	return s.Save(ctx.Request, ctx.Writer)
}

// Logout clears every session value and expires the cookie.
func (m *SessionManager) Logout(ctx *gin.Context) error {
	s := m.get(ctx)
	s.Values = map[interface{}]interface{}{}
	opts := *m.store.Options
	opts.MaxAge = -1
	s.Options = &opts
	return s.Save(ctx.Request, ctx.Writer)
}

// SetPending remembers a verified but unregistered pseudonymous id.
func (m *SessionManager) SetPending(ctx *gin.Context, hashed string) error {
	s := m.get(ctx)
	s.Values[sessionPendingID] = hashed
	delete(s.Values, sessionUserID)
	s.Values[sessionLoggedIn] = false
	return s.Save(ctx.Request, ctx.Writer)
}

// Pending returns the id stored by SetPending, or "".
func (m *SessionManager) Pending(ctx *gin.Context) string {
	v, _ := m.get(ctx).Values[sessionPendingID].(string)
	return v
}

// Locals exposes the application name and login state to handlers and templates.
func Locals(m *SessionManager, appName string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(ContextAppNameKey, appName)
		if id, ok := m.UserID(ctx); ok {
			ctx.Set(ContextUserIDKey, id)
			ctx.Set(ContextLoggedInKey, true)
		} else {
			ctx.Set(ContextLoggedInKey, false)
		}
		ctx.Next()
	}
}

// AuthRequired sends anonymous visitors to the login page.
func AuthRequired(m *SessionManager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, ok := m.UserID(ctx)
		if !ok {
			ctx.Redirect(http.StatusFound, "/login")
			ctx.Abort()
			return
		}
		ctx.Set(ContextUserIDKey, id)
		ctx.Set(ContextLoggedInKey, true)
		ctx.Next()
	}
}

// CurrentUserID reads the id stored by AuthRequired or Locals.
func CurrentUserID(ctx *gin.Context) (uint, bool) {
	v, ok := ctx.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
