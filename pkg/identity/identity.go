// Package identity holds the authenticated user identifier shared by every domain package.
package identity

import (
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/apperr"
)

// ErrInvalidUserID is returned for empty or oversized identifiers.
var ErrInvalidUserID = fmt.Errorf("%w: invalid user id", apperr.ErrValidation)

const maxUserIDLength = 255

// UserID identifies an authenticated account owner. Authentication happens upstream.
type UserID struct {
	value string
}

// NewUserID validates and normalizes a user id.
func NewUserID(raw string) (UserID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UserID{}, fmt.Errorf("%w: empty value", ErrInvalidUserID)
	}
	if len(trimmed) > maxUserIDLength {
		return UserID{}, fmt.Errorf("%w: longer than %d bytes", ErrInvalidUserID, maxUserIDLength)
	}
	return UserID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id UserID) String() string {
	return id.value
}

// IsZero reports whether the id was never initialized.
func (id UserID) IsZero() bool {
	return id.value == ""
}
