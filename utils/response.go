package utils

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

// Redirect sends a 302 to path and stops the handler chain.
func Redirect(ctx *gin.Context, path string) {
	ctx.Redirect(http.StatusFound, path)
	ctx.Abort()
}

// RedirectWithError redirects to path carrying a user-facing message in the error query param.
func RedirectWithError(ctx *gin.Context, path, message string) {
	Redirect(ctx, path+"?"+url.Values{"error": {message}}.Encode())
}

// JSONError writes {"error": message} with the given status.
func JSONError(ctx *gin.Context, status int, message string) {
	ctx.AbortWithStatusJSON(status, gin.H{"error": message})
}
