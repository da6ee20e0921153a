package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/ledger"
	"github.com/gin-gonic/gin"
)

func (handler *httpHandler) handleCredits(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	limit, ok := queryLimit(ctx)
	if !ok {
		return
	}
	var before time.Time
	if raw := ctx.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			respondInvalidPayload(ctx, "before must be an RFC 3339 timestamp")
			return
		}
		before = parsed
	}

	balance, err := handler.ledger.Balance(ctx.Request.Context(), userID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	entries, err := handler.ledger.ListEntries(ctx.Request.Context(), userID, before, limit)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]entryPayload, 0, len(entries))
	for _, entry := range entries {
		payloads = append(payloads, newEntryPayload(entry))
	}
	ctx.JSON(http.StatusOK, creditsResponse{Balance: balance.Int64(), Entries: payloads})
}

func (handler *httpHandler) handleWelcome(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	_, granted, err := handler.ledger.GrantWelcome(ctx.Request.Context(), userID, handler.cfg.WelcomeCredits)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	balance, err := handler.ledger.Balance(ctx.Request.Context(), userID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, welcomeResponse{Granted: granted, Balance: balance.Int64()})
}

// handleUsage charges a completed AI call against the caller's balance.
func (handler *httpHandler) handleUsage(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var request usageRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondInvalidPayload(ctx, "expected JSON body with operation and tokens_used")
		return
	}
	operation, err := ledger.ParseSourceType(request.Operation)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	entry, err := handler.ledger.RecordUsage(ctx.Request.Context(), userID, ledger.Usage{
		TokensUsed: request.TokensUsed,
		Operation:  operation,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	balance, err := handler.ledger.Balance(ctx.Request.Context(), userID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, usageResponse{Entry: newEntryPayload(entry), Balance: balance.Int64()})
}

func queryLimit(ctx *gin.Context) (int, bool) {
	raw := ctx.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		respondInvalidPayload(ctx, "limit must be an integer")
		return 0, false
	}
	return limit, true
}
