package backend

// The error taxonomy distinguishes the four caller-visible failure classes.
// Validation errors are always raised before any state mutation, so a
// rejected call never leaves the registry partially updated.

// NotFoundError reports a missing topic, subscription, application, or
// endpoint.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// InvalidParameterError reports a malformed or unacceptable parameter:
// bad filter policies, unknown attribute names, FIFO parameter misuse,
// oversize messages, malformed batch requests.
type InvalidParameterError struct {
	Message string
}

func (e *InvalidParameterError) Error() string { return e.Message }

// LimitExceededError reports a resource ceiling violation, such as the
// tag-count limit or the filter-policy combination limit.
type LimitExceededError struct {
	Message string
}

func (e *LimitExceededError) Error() string { return e.Message }

// InternalError reports failures the upstream API leaves opaque.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string { return e.Message }
