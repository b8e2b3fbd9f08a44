// Package ats implements the applicant tracking domain: job postings,
// applications, their status pipeline and recruiter/candidate messaging.
package ats

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrJobNotFound         = errors.New("job posting not found")
	ErrApplicationNotFound = errors.New("application not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrForbidden           = errors.New("access denied")
	ErrAlreadyApplied      = errors.New("You have already applied to this job")
	ErrJobNotActive        = errors.New("job posting is not accepting applications")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
	ErrCannotWithdraw      = errors.New("application can no longer be withdrawn")
	ErrChatNotAllowed      = errors.New("these users are not allowed to chat")
	ErrAlreadySaved        = errors.New("job already saved")
)

// ValidationError carries per-field problems with an input
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// validation returns nil when fields is empty
func validation(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
