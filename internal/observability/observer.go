package observability

import (
	"context"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/apperr"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/idempotency"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/interview"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/ledger"
	"go.uber.org/zap"
)

const statusOK = "ok"

// Observer turns domain callbacks into structured log lines and metric increments.
type Observer struct {
	logger  *zap.Logger
	metrics *Metrics
}

// NewObserver tolerates a nil metrics value so tests can observe logs alone.
func NewObserver(logger *zap.Logger, metrics *Metrics) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{logger: logger, metrics: metrics}
}

// LogOperation implements ledger.OperationLogger.
func (observer *Observer) LogOperation(_ context.Context, entry ledger.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("user_id", entry.UserID.String()),
		zap.String("source_type", string(entry.SourceType)),
		zap.Int64("amount", entry.Amount.Int64()),
		zap.String("status", entry.Status),
	}
	if entry.EntryID != "" {
		fields = append(fields, zap.String("entry_id", entry.EntryID))
	}
	if entry.IdempotencyKey != "" {
		fields = append(fields, zap.String("idempotency_key", entry.IdempotencyKey))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error), zap.String("error_kind", string(apperr.KindOf(entry.Error))))
		observer.logger.Warn("ledger.operation", fields...)
	} else {
		observer.logger.Info("ledger.operation", fields...)
	}

	if observer.metrics == nil {
		return
	}
	observer.metrics.ledgerOperations.WithLabelValues(entry.Operation, entry.Status).Inc()
	if entry.Status != statusOK {
		return
	}
	switch {
	case entry.Amount < 0:
		observer.metrics.creditsConsumed.WithLabelValues(string(entry.SourceType)).Add(float64(-entry.Amount))
	case entry.Amount > 0:
		observer.metrics.creditsGranted.WithLabelValues(string(entry.SourceType)).Add(float64(entry.Amount))
	}
}

// LogEvent implements interview.EventLogger.
func (observer *Observer) LogEvent(_ context.Context, event interview.Event) {
	fields := []zap.Field{
		zap.String("operation", event.Operation),
		zap.String("user_id", event.UserID.String()),
		zap.String("status", event.Status),
	}
	if event.TopicID != "" {
		fields = append(fields, zap.String("topic_id", event.TopicID))
	}
	if event.InterviewID != "" {
		fields = append(fields, zap.String("interview_id", event.InterviewID))
	}
	if event.State != "" {
		fields = append(fields, zap.String("state", string(event.State)))
	}
	if event.Error != nil {
		kind := apperr.KindOf(event.Error)
		fields = append(fields, zap.Error(event.Error), zap.String("error_kind", string(kind)))
		if apperr.IsOperational(event.Error) {
			observer.logger.Info("interview.event", fields...)
		} else {
			observer.logger.Error("interview.event", fields...)
		}
	} else {
		observer.logger.Info("interview.event", fields...)
	}

	if observer.metrics == nil {
		return
	}
	observer.metrics.interviewEvents.WithLabelValues(event.Operation, event.Status).Inc()
	if event.State != "" {
		observer.metrics.workflowOutcomes.WithLabelValues(string(event.State)).Inc()
	}
}

// RecordDecision implements idempotency.DecisionRecorder.
func (observer *Observer) RecordDecision(_ context.Context, decision idempotency.Decision) {
	if decision == idempotency.Rejected {
		observer.logger.Info("idempotency.rejected")
	}
	if observer.metrics != nil {
		observer.metrics.guardDecisions.WithLabelValues(decision.String()).Inc()
	}
}

var (
	_ ledger.OperationLogger       = (*Observer)(nil)
	_ interview.EventLogger        = (*Observer)(nil)
	_ idempotency.DecisionRecorder = (*Observer)(nil)
)
