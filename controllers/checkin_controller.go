package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/quitmate/services"
	"github.com/cppla/quitmate/utils"
)

// CheckinController handles daily check-in, make-up and calendar endpoints.
type CheckinController struct {
	checkins *services.CheckinService
}

// NewCheckinController creates a new controller instance.
func NewCheckinController(checkins *services.CheckinService) *CheckinController {
	return &CheckinController{checkins: checkins}
}

// CheckIn records today's check-in. A repeated call answers with the stored snapshot.
func (c *CheckinController) CheckIn(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	res, err := c.checkins.CheckIn(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50030, "failed to record check-in")
		return
	}
	if res.AlreadyCheckedIn {
		utils.Respond(ctx, http.StatusOK, 0, "already checked in today", res)
		return
	}
	utils.Success(ctx, res)
}

type makeUpRequest struct {
	Date string `json:"date" binding:"required"`
}

// MakeUp back-fills a missed day of the current month.
func (c *CheckinController) MakeUp(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req makeUpRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}
	res, err := c.checkins.MakeUp(ctx.Request.Context(), userID, req.Date)
	if err != nil {
		respondError(ctx, err, 50031, "failed to record make-up check-in")
		return
	}
	utils.Success(ctx, res)
}

// Records returns the calendar of ?year=&month=, defaulting to the current month.
func (c *CheckinController) Records(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	year, err := optionalInt(ctx.Query("year"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid year")
		return
	}
	month, err := optionalInt(ctx.Query("month"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, "invalid month")
		return
	}
	res, err := c.checkins.Records(ctx.Request.Context(), userID, year, time.Month(month))
	if err != nil {
		respondError(ctx, err, 50032, "failed to load check-in records")
		return
	}
	utils.Success(ctx, res)
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
