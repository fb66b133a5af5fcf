package domain

import "errors"

// KeyPrefix namespaces every key the service writes to a shared key-value store.
const KeyPrefix = "readdigest:"

var (
	// ErrInvalidRequest signals a malformed digest request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrParseFailure signals that the document text could not be extracted.
	ErrParseFailure = errors.New("parse failure")
	// ErrUnsupportedFormat signals a document extension with no text extractor.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrReadError signals an unreadable document.
	ErrReadError = errors.New("read error")

	// ErrBudgetExceeded signals that cumulative cost reached the ceiling.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrStoreUnavailable signals a failed existing-ID lookup.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrStoreWriteFailure signals a failed append.
	ErrStoreWriteFailure = errors.New("record store write failure")

	// ErrNotFound signals a missing record.
	ErrNotFound = errors.New("not found")

	// ErrNotificationFailure signals an undelivered notification.
	ErrNotificationFailure = errors.New("notification failure")
	// ErrCategorizerError signals a failed or empty category lookup.
	ErrCategorizerError = errors.New("categorizer error")
)
