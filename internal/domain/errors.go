package domain

import "errors"

var (
	// ErrQuestionNotFound indicates a referenced question ID is not in the catalog.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoQuestions indicates the catalog is empty.
	ErrNoQuestions = errors.New("no questions available")
	// ErrInsufficientCatalog indicates a sample larger than the catalog was requested.
	ErrInsufficientCatalog = errors.New("not enough questions in catalog")
	// ErrMalformedPayload indicates a callback payload that could not be decoded.
	ErrMalformedPayload = errors.New("malformed answer payload")
	// ErrStorageUnavailable wraps ledger I/O failures. Retry policy belongs to the caller.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
