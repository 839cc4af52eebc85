package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/quitmate/services"
	"github.com/cppla/quitmate/utils"
)

// MilestoneController serves badges and certificates.
type MilestoneController struct {
	badges       *services.BadgeService
	certificates *services.CertificateService
}

// NewMilestoneController creates a new controller instance.
func NewMilestoneController(badges *services.BadgeService, certificates *services.CertificateService) *MilestoneController {
	return &MilestoneController{badges: badges, certificates: certificates}
}

// Badges lists unlocked badges and the full badge wall.
func (m *MilestoneController) Badges(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	res, err := m.badges.List(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50040, "failed to load badges")
		return
	}
	utils.Success(ctx, res)
}

// GenerateCertificate issues the certificate of the highest tier reached, once per tier.
func (m *MilestoneController) GenerateCertificate(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	res, err := m.certificates.Generate(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50041, "failed to generate certificate")
		return
	}
	if res.Existing {
		utils.Respond(ctx, http.StatusOK, 0, "certificate already exists", res)
		return
	}
	utils.Success(ctx, res)
}

// Certificates lists the issued certificates.
func (m *MilestoneController) Certificates(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	certs, err := m.certificates.List(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50042, "failed to load certificates")
		return
	}
	utils.Success(ctx, gin.H{"certificates": certs, "tiers": services.TierTable})
}
