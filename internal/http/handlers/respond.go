package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The public wire shape is deliberately flat: {"error": "...", "details": ...}
// on failures and {"message": "..."} on success. Clients of the original
// deployment depend on these exact bodies.

func RespondMessage(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"message": message})
}

func RespondError(ctx *gin.Context, status int, errMsg string, details interface{}) {
	body := gin.H{"error": errMsg}

	if details != nil {
		body["details"] = details
	}

	ctx.JSON(status, body)
}

func RespondBadRequest(ctx *gin.Context, errMsg string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, errMsg, details)
}

func RespondConflict(ctx *gin.Context, errMsg string) {
	RespondError(ctx, http.StatusConflict, errMsg, nil)
}

func RespondUnAuthorized(ctx *gin.Context, errMsg string) {
	RespondError(ctx, http.StatusUnauthorized, errMsg, nil)
}

func RespondForbidden(ctx *gin.Context, errMsg string) {
	RespondError(ctx, http.StatusForbidden, errMsg, nil)
}

func RespondNotFound(ctx *gin.Context, errMsg string) {
	RespondError(ctx, http.StatusNotFound, errMsg, nil)
}

// RespondInternal never leaks the underlying cause; callers log it instead.
func RespondInternal(ctx *gin.Context) {
	RespondError(ctx, http.StatusInternalServerError, "Internal server error", nil)
}
