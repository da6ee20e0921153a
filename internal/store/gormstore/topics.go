package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/interview"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TopicRepository implements interview.TopicRepository and interview.TopicTxRepository.
type TopicRepository struct {
	db *gorm.DB
}

// NewTopicRepository returns a TopicRepository over db.
func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

func (repository *TopicRepository) Create(ctx context.Context, topic interview.Topic) (interview.Topic, error) {
	return createTopic(repository.db.WithContext(ctx), topic)
}

func (repository *TopicRepository) CreateTx(ctx context.Context, tx interview.Tx, topic interview.Topic) (interview.Topic, error) {
	db, err := transactionDB(ctx, tx)
	if err != nil {
		return interview.Topic{}, err
	}
	return createTopic(db, topic)
}

func (repository *TopicRepository) GetByID(ctx context.Context, userID identity.UserID, topicID string) (interview.Topic, error) {
	return getTopic(repository.db.WithContext(ctx), userID, topicID)
}

func (repository *TopicRepository) GetByIDTx(ctx context.Context, tx interview.Tx, userID identity.UserID, topicID string) (interview.Topic, error) {
	db, err := transactionDB(ctx, tx)
	if err != nil {
		return interview.Topic{}, err
	}
	return getTopic(db, userID, topicID)
}

func (repository *TopicRepository) ListByUser(ctx context.Context, userID identity.UserID, filter interview.TopicFilter) ([]interview.Topic, error) {
	query := repository.db.WithContext(ctx).Where("user_id = ?", userID.String())
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var rows []Topic
	if err := query.Order("created_at DESC").Order("topic_id DESC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectTopic, errorCodeList, err)
	}
	topics := make([]interview.Topic, 0, len(rows))
	for _, row := range rows {
		topic, err := mapTopic(row)
		if err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

func (repository *TopicRepository) UpdateStatus(ctx context.Context, userID identity.UserID, topicID string, transition interview.TopicTransition) error {
	return updateTopicStatus(repository.db.WithContext(ctx), userID, topicID, transition)
}

func (repository *TopicRepository) UpdateStatusTx(ctx context.Context, tx interview.Tx, userID identity.UserID, topicID string, transition interview.TopicTransition) error {
	db, err := transactionDB(ctx, tx)
	if err != nil {
		return err
	}
	return updateTopicStatus(db, userID, topicID, transition)
}

func createTopic(db *gorm.DB, topic interview.Topic) (interview.Topic, error) {
	questions, err := json.Marshal(questionsOrEmpty(topic.Questions))
	if err != nil {
		return interview.Topic{}, wrapStoreError(errorSubjectTopic, errorCodeInvalid, err)
	}
	now := time.Now().UTC()
	model := Topic{
		TopicID:   topic.ID,
		UserID:    topic.UserID.String(),
		Title:     topic.Title,
		Overview:  topic.Overview,
		Questions: datatypes.JSON(questions),
		Status:    string(topic.Status),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&model).Error; err != nil {
		return interview.Topic{}, wrapStoreError(errorSubjectTopic, errorCodeCreate, err)
	}
	return mapTopic(model)
}

func getTopic(db *gorm.DB, userID identity.UserID, topicID string) (interview.Topic, error) {
	var model Topic
	err := db.Where("topic_id = ? AND user_id = ?", topicID, userID.String()).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return interview.Topic{}, wrapStoreError(errorSubjectTopic, errorCodeGet, interview.ErrTopicNotFound)
	}
	if err != nil {
		return interview.Topic{}, wrapStoreError(errorSubjectTopic, errorCodeGet, err)
	}
	return mapTopic(model)
}

// updateTopicStatus is a compare-and-set on status; zero rows means the precondition no longer holds.
func updateTopicStatus(db *gorm.DB, userID identity.UserID, topicID string, transition interview.TopicTransition) error {
	if err := transition.Validate(); err != nil {
		return err
	}
	result := db.Model(&Topic{}).
		Where("topic_id = ? AND user_id = ? AND status = ?", topicID, userID.String(), string(transition.From())).
		Updates(map[string]any{"status": string(transition.To()), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return wrapStoreError(errorSubjectTopic, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectTopic, errorCodeUpdateStatus, interview.ErrStatusConflict)
	}
	return nil
}

func mapTopic(model Topic) (interview.Topic, error) {
	userID, err := identity.NewUserID(model.UserID)
	if err != nil {
		return interview.Topic{}, wrapStoreError(errorSubjectTopic, errorCodeInvalid, err)
	}
	status, err := interview.ParseTopicStatus(model.Status)
	if err != nil {
		return interview.Topic{}, wrapStoreError(errorSubjectTopic, errorCodeInvalid, err)
	}
	var questions []interview.Question
	if len(model.Questions) > 0 {
		if err := json.Unmarshal(model.Questions, &questions); err != nil {
			return interview.Topic{}, wrapStoreError(errorSubjectTopic, errorCodeInvalid, fmt.Errorf("questions: %w", err))
		}
	}
	return interview.Topic{
		ID:        model.TopicID,
		UserID:    userID,
		Title:     model.Title,
		Overview:  model.Overview,
		Questions: questionsOrEmpty(questions),
		Status:    status,
		CreatedAt: model.CreatedAt.UTC(),
		UpdatedAt: model.UpdatedAt.UTC(),
	}, nil
}

func questionsOrEmpty(questions []interview.Question) []interview.Question {
	if questions == nil {
		return []interview.Question{}
	}
	return questions
}
