package synthesizer

import "fmt"

// SearchUpstreamError wraps any failure of the web-search provider. The
// synthesizer never retries; retry policy belongs to the caller.
type SearchUpstreamError struct {
	Err error
}

func (e *SearchUpstreamError) Error() string {
	return fmt.Sprintf("search provider failed: %v", e.Err)
}

func (e *SearchUpstreamError) Unwrap() error { return e.Err }

// ModelUpstreamError wraps any failure of the language-model provider.
// RateLimited distinguishes a 429-flavored refusal, which callers may
// translate into a retry-shortly signal.
type ModelUpstreamError struct {
	Err         error
	RateLimited bool
}

func (e *ModelUpstreamError) Error() string {
	return fmt.Sprintf("model provider failed: %v", e.Err)
}

func (e *ModelUpstreamError) Unwrap() error { return e.Err }
