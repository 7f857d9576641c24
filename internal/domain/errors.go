package domain

import "errors"

var (
	// ErrSessionNotFound signals a missing or expired session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCollectionNotFound signals a missing vector collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrRetrievalUnavailable signals that the vector index is unreachable.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrGenerationFailure signals a text-generation provider error or timeout.
	ErrGenerationFailure = errors.New("generation failure")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
