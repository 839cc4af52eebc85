package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/quitmate/config"
	"github.com/cppla/quitmate/middleware"
	"github.com/cppla/quitmate/services"
	"github.com/cppla/quitmate/utils"
)

// AuthController handles session endpoints.
type AuthController struct {
	profiles *services.ProfileService
}

// NewAuthController creates a new controller instance.
func NewAuthController(profiles *services.ProfileService) *AuthController {
	return &AuthController{profiles: profiles}
}

// Login get-or-creates the caller's profile and issues a session token.
// The identity comes from the gateway header, never from the request body.
func (a *AuthController) Login(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	profile, created, err := a.profiles.Login(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50010, "failed to login")
		return
	}

	token, expiresAt, err := utils.GenerateToken(userID, config.Get().JWTTTL)
	if err != nil {
		utils.LoggerFrom(ctx.Request.Context()).Error("token signing failed", zap.String("user_id", userID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user_id":    userID,
		"created":    created,
		"profile":    profile,
	})
}

// Logout revokes the current token until it expires.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}

	expiresAt := time.Now().Add(config.Get().JWTTTL)
	if v, ok := ctx.Get(middleware.ContextTokenExpiryKey); ok {
		if t, ok := v.(time.Time); ok {
			expiresAt = t
		}
	}

	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the profile of the authenticated user.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	profile, err := a.profiles.Get(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50012, "failed to load user")
		return
	}
	utils.Success(ctx, profile)
}
