package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/quitmate/middleware"
	"github.com/cppla/quitmate/services"
	"github.com/cppla/quitmate/utils"
)

func getUserID(ctx *gin.Context) (string, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}

// requireUser writes 401 and returns false when the request carries no identity.
func requireUser(ctx *gin.Context) (string, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return userID, ok
}

type errorMapping struct {
	err     error
	status  int
	code    int
	message string
}

// Domain rejections are answered with their own code; the message is the error text
// unless a fixed one is given.
var serviceErrors = []errorMapping{
	{services.ErrMissingUser, http.StatusUnauthorized, 40110, "unauthorized"},
	{services.ErrInvalidDate, http.StatusBadRequest, 40040, ""},
	{services.ErrDateNotPast, http.StatusBadRequest, 40041, "make-up date must be before today"},
	{services.ErrWrongMonth, http.StatusBadRequest, 40042, "only days of the current month can be made up"},
	{services.ErrQuotaExhausted, http.StatusBadRequest, 40043, "no make-up check-ins left this month"},
	{services.ErrAlreadyCheckedIn, http.StatusConflict, 40930, "already checked in on that date"},
	{services.ErrQuitDateRequired, http.StatusBadRequest, 40050, "quit date is required"},
	{services.ErrQuitDateInFuture, http.StatusBadRequest, 40051, "quit date cannot be in the future"},
	{services.ErrQuitDateNotSet, http.StatusBadRequest, 40052, "set a quit date first"},
	{services.ErrNotEligible, http.StatusBadRequest, 40053, "not eligible for a certificate yet"},
	{services.ErrProfileNotFound, http.StatusNotFound, 40410, "user not found"},
	{services.ErrEmptyUpdate, http.StatusBadRequest, 40060, "no fields to update"},
	{services.ErrInvalidField, http.StatusBadRequest, 40061, ""},
	{services.ErrInvalidPuffKind, http.StatusBadRequest, 40070, "invalid cigarette action"},
	{services.ErrInvalidCount, http.StatusBadRequest, 40071, ""},
	{services.ErrInvalidShareType, http.StatusBadRequest, 40072, "invalid share type"},
}

// respondError maps err to the response envelope. Unknown errors are logged and
// answered with the retryable failure code of the endpoint.
func respondError(ctx *gin.Context, err error, failureCode int, failureMsg string) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			utils.Error(ctx, m.status, m.code, msg)
			return
		}
	}
	userID, _ := getUserID(ctx)
	utils.LoggerFrom(ctx.Request.Context()).Error(failureMsg,
		zap.String("user_id", userID),
		zap.String("path", ctx.FullPath()),
		zap.Error(err),
	)
	utils.Error(ctx, http.StatusInternalServerError, failureCode, failureMsg)
}
