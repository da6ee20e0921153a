package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/idempotency"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// idempotencyMiddleware suppresses a mutating request whose signature was already processed.
// A failing guard store lets the request through; 5xx responses stay unmarked so the client can retry.
func idempotencyMiddleware(guard *idempotency.Guard, logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if idempotency.IsReadOnlyMethod(ctx.Request.Method) {
			ctx.Next()
			return
		}
		claims := getClaims(ctx)
		if claims == nil {
			ctx.Next()
			return
		}
		body, err := readBody(ctx)
		if err != nil {
			respondInvalidPayload(ctx, "request body too large or unreadable")
			return
		}
		signature := idempotency.Signature(ctx.Request.Method, ctx.Request.URL.Path, claims.GetUserID(), body)
		decision, err := guard.Admit(ctx.Request.Context(), signature)
		if err != nil {
			logger.Warn("idempotency guard unavailable", zap.Error(err))
			ctx.Next()
			return
		}
		if decision == idempotency.Rejected {
			status, code := statusForError(idempotency.ErrDuplicateRequest)
			ctx.AbortWithStatusJSON(status, errorResponse(code, "request already processed"))
			return
		}

		ctx.Next()

		if ctx.Writer.Status() >= http.StatusInternalServerError {
			return
		}
		if err := guard.MarkProcessed(context.WithoutCancel(ctx.Request.Context()), signature); err != nil {
			logger.Warn("idempotency mark failed", zap.Error(err))
		}
	}
}

func readBody(ctx *gin.Context) ([]byte, error) {
	if ctx.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBodyBytes))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	ctx.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
