package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/quitmate/config"
	"github.com/cppla/quitmate/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextTokenKey stores the raw bearer token for logout.
	ContextTokenKey = "token"
	// ContextTokenExpiryKey stores the token expiry for logout.
	ContextTokenExpiryKey = "token_expiry"
)

// AuthRequired ensures the request is authenticated via JWT.
// Websocket upgrades cannot set headers in browsers, so a token query parameter is accepted too.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, code, msg := bearerToken(ctx)
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, code, msg)
			ctx.Abort()
			return
		}

		if utils.IsTokenBlacklisted(tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextTokenKey, tokenString)
		if claims.ExpiresAt != nil {
			ctx.Set(ContextTokenExpiryKey, claims.ExpiresAt.Time)
		}
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) (string, int, string) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		if q := strings.TrimSpace(ctx.Query("token")); q != "" {
			return q, 0, ""
		}
		return "", 40101, "authorization header missing"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", 40102, "invalid authorization header format"
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", 40103, "empty bearer token"
	}
	return tokenString, 0, ""
}

// IdentityRequired reads the caller identity injected by the hosting gateway.
// It is only mounted on the login route; every other route relies on the session token.
func IdentityRequired() gin.HandlerFunc {
	header := config.Get().IdentityHeader
	return func(ctx *gin.Context) {
		id := strings.TrimSpace(ctx.GetHeader(header))
		if id == "" || len(id) > 64 {
			utils.Error(ctx, http.StatusUnauthorized, 40106, "caller identity missing")
			ctx.Abort()
			return
		}
		ctx.Set(ContextUserIDKey, id)
		ctx.Next()
	}
}
