package ledger

import (
	"errors"
	"fmt"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/apperr"
)

// Domain-level error values returned by the ledger service.
var (
	ErrInsufficientCredits     = fmt.Errorf("%w: balance too low", apperr.ErrInsufficientCredits)
	ErrDuplicateIdempotencyKey = fmt.Errorf("%w: duplicate idempotency key", apperr.ErrConflict)
	ErrInvalidAmount           = fmt.Errorf("%w: invalid amount", apperr.ErrValidation)
	ErrInvalidUsage            = fmt.Errorf("%w: invalid usage", apperr.ErrValidation)
	ErrUnknownSourceType       = fmt.Errorf("%w: unknown source type", apperr.ErrValidation)
	ErrNotGrantSource          = fmt.Errorf("%w: source type cannot grant credits", apperr.ErrValidation)
	ErrNotMeteredSource        = fmt.Errorf("%w: source type has no consumption rate", apperr.ErrValidation)
	ErrInvalidListLimit        = fmt.Errorf("%w: invalid list limit", apperr.ErrValidation)
	ErrInvalidServiceConfig    = errors.New("invalid service config")
)
