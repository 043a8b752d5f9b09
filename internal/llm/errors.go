package llm

import "errors"

// ErrProviderUnavailable means the client could not be initialized at all
// (missing key, unknown provider). Fatal for the whole run.
var ErrProviderUnavailable = errors.New("llm provider unavailable")

// ErrMalformedResponse means the provider answered but the payload was not
// JSON even after salvage. Recoverable at row granularity.
var ErrMalformedResponse = errors.New("malformed llm response")

// ErrBudgetExceeded means the projected spend would cross the ceiling.
// Fatal for the run; the rejected call is never issued.
var ErrBudgetExceeded = errors.New("budget ceiling reached")
