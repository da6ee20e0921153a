package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/interview"
	"gorm.io/gorm"
)

// InterviewRepository implements interview.InterviewRepository and interview.InterviewTxRepository.
type InterviewRepository struct {
	db *gorm.DB
}

func NewInterviewRepository(db *gorm.DB) *InterviewRepository {
	return &InterviewRepository{db: db}
}

func (repository *InterviewRepository) Create(ctx context.Context, record interview.Interview) (interview.Interview, error) {
	return createInterview(repository.db.WithContext(ctx), record)
}

func (repository *InterviewRepository) CreateTx(ctx context.Context, tx interview.Tx, record interview.Interview) (interview.Interview, error) {
	db, err := transactionDB(ctx, tx)
	if err != nil {
		return interview.Interview{}, err
	}
	return createInterview(db, record)
}

func (repository *InterviewRepository) GetByID(ctx context.Context, userID identity.UserID, interviewID string) (interview.Interview, error) {
	var model Interview
	err := repository.db.WithContext(ctx).
		Where("interview_id = ? AND user_id = ?", interviewID, userID.String()).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return interview.Interview{}, wrapStoreError(errorSubjectInterview, errorCodeGet, interview.ErrInterviewNotFound)
	}
	if err != nil {
		return interview.Interview{}, wrapStoreError(errorSubjectInterview, errorCodeGet, err)
	}
	return mapInterview(model)
}

func (repository *InterviewRepository) ListByUser(ctx context.Context, userID identity.UserID, limit int) ([]interview.Interview, error) {
	var rows []Interview
	query := repository.db.WithContext(ctx).Where("user_id = ?", userID.String())
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("created_at DESC").Order("interview_id DESC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectInterview, errorCodeList, err)
	}
	interviews := make([]interview.Interview, 0, len(rows))
	for _, row := range rows {
		mapped, err := mapInterview(row)
		if err != nil {
			return nil, err
		}
		interviews = append(interviews, mapped)
	}
	return interviews, nil
}

func (repository *InterviewRepository) UpdateStatus(ctx context.Context, userID identity.UserID, interviewID string, transition interview.InterviewTransition) error {
	if err := transition.Validate(); err != nil {
		return err
	}
	result := repository.db.WithContext(ctx).
		Model(&Interview{}).
		Where("interview_id = ? AND user_id = ? AND status = ?", interviewID, userID.String(), string(transition.From())).
		Updates(map[string]any{"status": string(transition.To()), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return wrapStoreError(errorSubjectInterview, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectInterview, errorCodeUpdateStatus, interview.ErrStatusConflict)
	}
	return nil
}

func createInterview(db *gorm.DB, record interview.Interview) (interview.Interview, error) {
	now := time.Now().UTC()
	model := Interview{
		InterviewID: record.ID,
		UserID:      record.UserID.String(),
		TopicID:     record.TopicID,
		Title:       record.Title,
		Overview:    record.Overview,
		Status:      string(record.Status),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(&model).Error; err != nil {
		return interview.Interview{}, wrapStoreError(errorSubjectInterview, errorCodeCreate, err)
	}
	return mapInterview(model)
}

func mapInterview(model Interview) (interview.Interview, error) {
	userID, err := identity.NewUserID(model.UserID)
	if err != nil {
		return interview.Interview{}, wrapStoreError(errorSubjectInterview, errorCodeInvalid, err)
	}
	status, err := interview.ParseInterviewStatus(model.Status)
	if err != nil {
		return interview.Interview{}, wrapStoreError(errorSubjectInterview, errorCodeInvalid, err)
	}
	return interview.Interview{
		ID:        model.InterviewID,
		UserID:    userID,
		TopicID:   model.TopicID,
		Title:     model.Title,
		Overview:  model.Overview,
		Status:    status,
		CreatedAt: model.CreatedAt.UTC(),
		UpdatedAt: model.UpdatedAt.UTC(),
	}, nil
}
