package attempt

import "errors"

var (
	// ErrNotFound: the referenced attempt does not exist.
	ErrNotFound = errors.New("attempt not found")
	// ErrQuestionNotFound: the question is not part of the attempt's test.
	ErrQuestionNotFound = errors.New("question not in test")
	// ErrUnauthenticated: no caller identity was supplied.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden: caller is neither the owner nor an administrator, or an
	// owner tried an operation reserved for administrators.
	ErrForbidden = errors.New("forbidden")
	// ErrFinished: a mutation targeted an attempt that is no longer in
	// progress. Callers surface this as "this test has already ended".
	ErrFinished = errors.New("attempt is no longer in progress")
	// ErrInvalidTransition: a status change other than
	// in_progress→completed or in_progress→abandoned was requested.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidAnswer: the submitted payload does not match the shape the
	// question's type expects.
	ErrInvalidAnswer = errors.New("invalid answer payload")
)
