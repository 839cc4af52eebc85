package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/quitmate/services"
	"github.com/cppla/quitmate/utils"
)

// ProfileController handles the quit date, habit and settings updates and the dashboard.
type ProfileController struct {
	profiles *services.ProfileService
	stats    *services.StatsService
}

// NewProfileController creates a new controller instance.
func NewProfileController(profiles *services.ProfileService, stats *services.StatsService) *ProfileController {
	return &ProfileController{profiles: profiles, stats: stats}
}

type quitDateRequest struct {
	QuitDate string `json:"quit_date"`
}

// SetQuitDate stores the day the user stopped smoking.
func (p *ProfileController) SetQuitDate(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req quitDateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}
	profile, err := p.profiles.SetQuitDate(ctx.Request.Context(), userID, req.QuitDate)
	if err != nil {
		respondError(ctx, err, 50050, "failed to set quit date")
		return
	}
	utils.Success(ctx, profile)
}

// UpdateInfo applies a partial profile update.
func (p *ProfileController) UpdateInfo(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req services.ProfileInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}
	profile, err := p.profiles.UpdateInfo(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err, 50051, "failed to update profile")
		return
	}
	utils.Success(ctx, profile)
}

// Stats returns the dashboard of the authenticated user.
func (p *ProfileController) Stats(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	res, err := p.stats.UserStats(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50052, "failed to load stats")
		return
	}
	utils.Success(ctx, res)
}
