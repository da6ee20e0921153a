package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/interview"
	"gorm.io/gorm"
)

// AnswerRepository implements interview.AnswerRepository and interview.AnswerTxRepository.
type AnswerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

func (repository *AnswerRepository) Create(ctx context.Context, answer interview.Answer) (interview.Answer, error) {
	return createAnswer(repository.db.WithContext(ctx), answer)
}

func (repository *AnswerRepository) CreateTx(ctx context.Context, tx interview.Tx, answer interview.Answer) (interview.Answer, error) {
	db, err := transactionDB(ctx, tx)
	if err != nil {
		return interview.Answer{}, err
	}
	return createAnswer(db, answer)
}

func (repository *AnswerRepository) GetByID(ctx context.Context, userID identity.UserID, answerID string) (interview.Answer, error) {
	var model Answer
	err := repository.db.WithContext(ctx).
		Where("answer_id = ? AND user_id = ?", answerID, userID.String()).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return interview.Answer{}, wrapStoreError(errorSubjectAnswer, errorCodeGet, interview.ErrAnswerNotFound)
	}
	if err != nil {
		return interview.Answer{}, wrapStoreError(errorSubjectAnswer, errorCodeGet, err)
	}
	return mapAnswer(model)
}

func (repository *AnswerRepository) ListByInterview(ctx context.Context, userID identity.UserID, interviewID string) ([]interview.Answer, error) {
	var rows []Answer
	err := repository.db.WithContext(ctx).
		Where("interview_id = ? AND user_id = ?", interviewID, userID.String()).
		Order("question_number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectAnswer, errorCodeList, err)
	}
	answers := make([]interview.Answer, 0, len(rows))
	for _, row := range rows {
		answer, err := mapAnswer(row)
		if err != nil {
			return nil, err
		}
		answers = append(answers, answer)
	}
	return answers, nil
}

// UpdateResponse guards the write with a subquery on the interview status so a concurrent
// completion cannot be followed by an edit.
func (repository *AnswerRepository) UpdateResponse(ctx context.Context, userID identity.UserID, interviewID string, questionNumber int, update interview.AnswerUpdate) (interview.Answer, error) {
	var updated Answer
	err := repository.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		var model Answer
		err := transaction.
			Where("interview_id = ? AND user_id = ? AND question_number = ?", interviewID, userID.String(), questionNumber).
			Take(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return wrapStoreError(errorSubjectAnswer, errorCodeGet, interview.ErrAnswerNotFound)
		}
		if err != nil {
			return wrapStoreError(errorSubjectAnswer, errorCodeGet, err)
		}
		editable := transaction.Model(&Interview{}).
			Select("interview_id").
			Where("interview_id = ? AND user_id = ? AND status = ?", interviewID, userID.String(), string(interview.InterviewDraft))
		response := update.Response
		now := time.Now().UTC()
		result := transaction.Model(&Answer{}).
			Where("answer_id = ? AND interview_id IN (?)", model.AnswerID, editable).
			Updates(map[string]any{
				"answer":                     response,
				"recording_duration_seconds": update.RecordingDurationSeconds,
				"updated_at":                 now,
			})
		if result.Error != nil {
			return wrapStoreError(errorSubjectAnswer, errorCodeUpdate, result.Error)
		}
		if result.RowsAffected == 0 {
			return wrapStoreError(errorSubjectAnswer, errorCodeUpdate, interview.ErrStatusConflict)
		}
		model.Response = &response
		model.RecordingDurationSeconds = update.RecordingDurationSeconds
		model.UpdatedAt = now
		updated = model
		return nil
	})
	if err != nil {
		return interview.Answer{}, err
	}
	return mapAnswer(updated)
}

func createAnswer(db *gorm.DB, answer interview.Answer) (interview.Answer, error) {
	now := time.Now().UTC()
	model := Answer{
		AnswerID:                 answer.ID,
		InterviewID:              answer.InterviewID,
		UserID:                   answer.UserID.String(),
		QuestionNumber:           answer.QuestionNumber,
		Question:                 answer.Question,
		Response:                 answer.Response,
		RecordingDurationSeconds: answer.RecordingDurationSeconds,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	err := db.Create(&model).Error
	if isUniqueViolation(err, constraintAnswerQuestion) {
		return interview.Answer{}, wrapStoreError(errorSubjectAnswer, errorCodeDuplicate, errDuplicateAnswer)
	}
	if err != nil {
		return interview.Answer{}, wrapStoreError(errorSubjectAnswer, errorCodeCreate, err)
	}
	return mapAnswer(model)
}

var errDuplicateAnswer = errors.New("answer for this question already exists")

func mapAnswer(model Answer) (interview.Answer, error) {
	userID, err := identity.NewUserID(model.UserID)
	if err != nil {
		return interview.Answer{}, wrapStoreError(errorSubjectAnswer, errorCodeInvalid, err)
	}
	return interview.Answer{
		ID:                       model.AnswerID,
		InterviewID:              model.InterviewID,
		UserID:                   userID,
		QuestionNumber:           model.QuestionNumber,
		Question:                 model.Question,
		Response:                 model.Response,
		RecordingDurationSeconds: model.RecordingDurationSeconds,
		CreatedAt:                model.CreatedAt.UTC(),
		UpdatedAt:                model.UpdatedAt.UTC(),
	}, nil
}
