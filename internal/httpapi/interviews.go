package httpapi

import (
	"net/http"
	"strconv"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/interview"
	"github.com/gin-gonic/gin"
)

func (handler *httpHandler) handleListTopics(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	limit, ok := queryLimit(ctx)
	if !ok {
		return
	}
	filter := interview.TopicFilter{Limit: limit}
	if raw := ctx.Query("status"); raw != "" {
		status, err := interview.ParseTopicStatus(raw)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		filter.Status = &status
	}
	topics, err := handler.interviews.ListTopics(ctx.Request.Context(), userID, filter)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]topicPayload, 0, len(topics))
	for _, topic := range topics {
		payloads = append(payloads, newTopicPayload(topic))
	}
	ctx.JSON(http.StatusOK, gin.H{"topics": payloads})
}

func (handler *httpHandler) handleCreateTopics(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var request createTopicsRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondInvalidPayload(ctx, "expected JSON body with topics")
		return
	}
	drafts := make([]interview.TopicDraft, 0, len(request.Topics))
	for _, draft := range request.Topics {
		drafts = append(drafts, interview.TopicDraft{Title: draft.Title, Overview: draft.Overview, Questions: draft.Questions})
	}
	topics, err := handler.interviews.CreateTopics(ctx.Request.Context(), userID, drafts)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]topicPayload, 0, len(topics))
	for _, topic := range topics {
		payloads = append(payloads, newTopicPayload(topic))
	}
	ctx.JSON(http.StatusCreated, gin.H{"topics": payloads})
}

func (handler *httpHandler) handleSelectTopic(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	selection, err := handler.workflow.Select(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, newSelectionPayload(selection))
}

func (handler *httpHandler) handleDismissTopic(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	topic, err := handler.interviews.DismissTopic(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"topic": newTopicPayload(topic)})
}

func (handler *httpHandler) handleListInterviews(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	limit, ok := queryLimit(ctx)
	if !ok {
		return
	}
	interviews, err := handler.interviews.ListInterviews(ctx.Request.Context(), userID, limit)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]interviewPayload, 0, len(interviews))
	for _, record := range interviews {
		payloads = append(payloads, newInterviewPayload(record))
	}
	ctx.JSON(http.StatusOK, gin.H{"interviews": payloads})
}

func (handler *httpHandler) handleGetInterview(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	selection, err := handler.interviews.GetInterview(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newSelectionPayload(selection))
}

func (handler *httpHandler) handleSaveAnswer(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	questionNumber, err := strconv.Atoi(ctx.Param("number"))
	if err != nil {
		respondInvalidPayload(ctx, "question number must be an integer")
		return
	}
	var request saveAnswerRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondInvalidPayload(ctx, "expected JSON body with answer")
		return
	}
	answer, err := handler.interviews.SaveAnswer(ctx.Request.Context(), userID, ctx.Param("id"), questionNumber, interview.AnswerUpdate{
		Response:                 request.Answer,
		RecordingDurationSeconds: request.RecordingDurationSeconds,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"answer": newAnswerPayload(answer)})
}

func (handler *httpHandler) handleCompleteInterview(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	record, err := handler.interviews.CompleteInterview(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"interview": newInterviewPayload(record)})
}
