package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/apperr"
	"github.com/gin-gonic/gin"
)

const (
	errorCodeUnauthorized   = "unauthorized"
	errorCodeInvalidPayload = "invalid_payload"
	errorCodeTimeout        = "timeout"
	errorCodeInternal       = "internal_error"
)

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// statusForError maps the error taxonomy onto HTTP statuses. The kind doubles as the error code.
func statusForError(err error) (int, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, errorCodeTimeout
	}
	switch kind := apperr.KindOf(err); kind {
	case apperr.KindValidation, apperr.KindBadRequest:
		return http.StatusBadRequest, string(kind)
	case apperr.KindNotFound:
		return http.StatusNotFound, string(kind)
	case apperr.KindInsufficientCredits:
		return http.StatusPaymentRequired, string(kind)
	case apperr.KindConflict:
		return http.StatusConflict, string(kind)
	case apperr.KindDuplicateRequest:
		return http.StatusTooManyRequests, string(kind)
	default:
		return http.StatusInternalServerError, errorCodeInternal
	}
}

func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	status, code := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	_ = ctx.Error(err)
	ctx.AbortWithStatusJSON(status, errorResponse(code, message))
}

func respondInvalidPayload(ctx *gin.Context, message string) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, message))
}
