package smartsearch

import (
	"fmt"

	"github.com/samas-it-services/smart-search/pkg/smartsearch/types"
)

// Error is the typed error every failure path in this package returns
// as (or wraps into), so callers can errors.As into the kind they care
// about instead of matching on string content.
type Error struct {
	Kind    types.ErrorKind
	Backend string // "cache", "database", or "" when not backend-specific
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Backend, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Summary projects the error into the wire-level ErrorSummary attached
// to a ResultEnvelope.
func (e *Error) Summary() types.ErrorSummary {
	return types.ErrorSummary{Kind: e.Kind, Backend: e.Backend, Message: e.Message}
}

func newValidationError(message string) *Error {
	return &Error{Kind: types.KindValidation, Message: message}
}

func newBackendTimeout(backendName string, cause error) *Error {
	return &Error{Kind: types.KindBackendTimeout, Backend: backendName, Message: "operation deadline exceeded", Cause: cause}
}

func newBackendUnavailable(backendName, message string, cause error) *Error {
	return &Error{Kind: types.KindBackendUnavailable, Backend: backendName, Message: message, Cause: cause}
}

func newSerializationError(backendName, message string, cause error) *Error {
	return &Error{Kind: types.KindSerialization, Backend: backendName, Message: message, Cause: cause}
}

func newCancellationError(cause error) *Error {
	return &Error{Kind: types.KindCancellation, Message: "request canceled", Cause: cause}
}
