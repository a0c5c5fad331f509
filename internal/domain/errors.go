package domain

import (
	"errors"
	"sort"
	"strings"
)

// Kind classifies an error for the API boundary.
type Kind int

const (
	KindInvalid Kind = iota + 1
	KindNotFound
	KindForbidden
	KindConflict
	KindUnauthenticated
)

// Error is a typed business error. Sentinels below are compared with errors.Is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrUserNotFound       = newError(KindNotFound, "user not found")
	ErrCompanyNotFound    = newError(KindNotFound, "company not found")
	ErrQuizNotFound       = newError(KindNotFound, "quiz not found")
	ErrQuestionNotFound   = newError(KindNotFound, "question not found")
	ErrAnswerNotFound     = newError(KindNotFound, "answer not found")
	ErrAttemptNotFound    = newError(KindNotFound, "quiz attempt not found")
	ErrInvitationNotFound = newError(KindInvalid, "invitation not found")

	ErrNotMember          = newError(KindInvalid, "user is not a member of the company")
	ErrAlreadyMember      = newError(KindInvalid, "user is already a member of the company")
	ErrOwnerImmutable     = newError(KindInvalid, "the company owner cannot be removed")
	ErrEmptySubmission    = newError(KindInvalid, "no answers submitted")
	ErrDuplicateQuestion  = newError(KindInvalid, "question answered more than once")
	ErrInvalidFrequency   = newError(KindInvalid, "frequency_in_days must be positive")
	ErrInvalidCredentials = newError(KindInvalid, "unable to log in with provided credentials")
	ErrAttemptConsumed    = newError(KindConflict, "quiz attempt already submitted")
	ErrInvitationPending  = newError(KindConflict, "an invitation is already pending for this user")
	ErrAttemptAlreadyOpen = newError(KindConflict, "an open attempt already exists")
	ErrForbidden          = newError(KindForbidden, "you do not have permission to perform this action")
	ErrOwnerOnly          = newError(KindForbidden, "only the company owner can perform this action")
	ErrNotAuthenticated   = newError(KindUnauthenticated, "authentication credentials were not provided")
	ErrUsernameTaken      = &ValidationError{Fields: map[string]string{"username": "a user with that username already exists"}}
)

// ValidationError carries per-field messages for malformed input.
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
	return "invalid input: " + strings.Join(parts, "; ")
}

// KindOf reports the Kind of err, or 0 for untyped errors.
func KindOf(err error) Kind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindInvalid
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
