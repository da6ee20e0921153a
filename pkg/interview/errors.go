package interview

import (
	"errors"
	"fmt"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/apperr"
)

// Domain-level error values returned by repositories, the workflow and the service.
var (
	ErrTopicNotFound     = fmt.Errorf("%w: topic", apperr.ErrNotFound)
	ErrInterviewNotFound = fmt.Errorf("%w: interview", apperr.ErrNotFound)
	ErrAnswerNotFound    = fmt.Errorf("%w: answer", apperr.ErrNotFound)

	ErrTopicNotAvailable    = fmt.Errorf("%w: topic is not available", apperr.ErrBadRequest)
	ErrInterviewNotEditable = fmt.Errorf("%w: interview is not a draft", apperr.ErrBadRequest)
	ErrInvalidTransition    = fmt.Errorf("%w: status transition not allowed", apperr.ErrBadRequest)

	ErrSelectionConflict = fmt.Errorf("%w: topic was selected concurrently", apperr.ErrConflict)
	// ErrStatusConflict is returned by conditional status updates that matched no row.
	ErrStatusConflict = fmt.Errorf("%w: status changed concurrently", apperr.ErrConflict)

	ErrInvalidStatus    = fmt.Errorf("%w: invalid status", apperr.ErrValidation)
	ErrInvalidTopic     = fmt.Errorf("%w: invalid topic", apperr.ErrValidation)
	ErrInvalidAnswer    = fmt.Errorf("%w: invalid answer", apperr.ErrValidation)
	ErrInvalidID        = fmt.Errorf("%w: invalid id", apperr.ErrValidation)
	ErrInvalidListLimit = fmt.Errorf("%w: invalid list limit", apperr.ErrValidation)

	ErrForeignTransaction   = errors.New("transaction handle does not belong to this store")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)
