package stats

import (
	"errors"
	"fmt"
)

// ErrUnknownDomain is returned when a caller names a domain the registry
// was not built with. It is a validation failure: nothing is mutated.
var ErrUnknownDomain = errors.New("unknown domain")

// ValidationError rejects a malformed submission before any storage write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid submission: field %q %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is a submission or domain
// validation failure, as opposed to a storage failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.Is(err, ErrUnknownDomain) || errors.As(err, &ve)
}
