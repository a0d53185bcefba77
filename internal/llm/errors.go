package llm

import (
	"errors"
)

var (
	// ErrEmptyResponse means the provider replied without usable text.
	ErrEmptyResponse = errors.New("provider returned no usable text")
	// ErrMalformedOutput means the post-processed text is not an HTML
	// document.
	ErrMalformedOutput = errors.New("provider output is not an HTML document")
	// ErrStream means the provider stream failed mid-response.
	ErrStream = errors.New("stream failed mid-response")
	// ErrCancelled means the caller cancelled the generation.
	ErrCancelled = errors.New("generation cancelled")
	// ErrTimeout means the per-request deadline elapsed.
	ErrTimeout = errors.New("generation timed out")
	// ErrProviderUnavailable means the routed provider has no usable
	// credentials.
	ErrProviderUnavailable = errors.New("provider unavailable")
)
