package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/quitmate/services"
	"github.com/cppla/quitmate/utils"
)

// CounterController handles the virtual cigarette and share counters.
type CounterController struct {
	counters *services.CounterService
}

// NewCounterController creates a new controller instance.
func NewCounterController(counters *services.CounterService) *CounterController {
	return &CounterController{counters: counters}
}

type puffRequest struct {
	Type  string `json:"type" binding:"required"`
	Count *int   `json:"count"`
}

// RecordPuff counts a virtual cigarette action for today.
func (c *CounterController) RecordPuff(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req puffRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}
	count := 1
	if req.Count != nil {
		count = *req.Count
	}
	today, err := c.counters.RecordPuff(ctx.Request.Context(), userID, req.Type, count)
	if err != nil {
		respondError(ctx, err, 50060, "failed to record cigarette action")
		return
	}
	utils.Success(ctx, gin.H{"stats": today})
}

// CigaretteStats returns today's and lifetime counters.
func (c *CounterController) CigaretteStats(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	res, err := c.counters.CigaretteStats(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50061, "failed to load cigarette stats")
		return
	}
	utils.Success(ctx, res)
}

type shareRequest struct {
	ShareType string `json:"share_type"`
}

// RecordShare counts one share for today.
func (c *CounterController) RecordShare(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req shareRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
			return
		}
	}
	n, err := c.counters.RecordShare(ctx.Request.Context(), userID, req.ShareType)
	if err != nil {
		respondError(ctx, err, 50062, "failed to record share")
		return
	}
	utils.Success(ctx, gin.H{"share_count": n})
}
