package chunker

import "errors"

// Sentinel errors for the chunker package.
var (
	// ErrEmptyText indicates the caller passed blank text to Chunk.
	ErrEmptyText = errors.New("text is empty")

	// ErrNoContent indicates text contained no content after splitting.
	ErrNoContent = errors.New("no content after splitting")

	// ErrModelLoadFailed indicates the semantic chunker's boundary model
	// could not be loaded after exhausting retries.
	ErrModelLoadFailed = errors.New("chunking model failed to load")
)
