package domain

import "fmt"

// ConfigurationError marks a malformed or missing formula field for a
// scheme's declared type. Upstream validation should make this
// unreachable; it is checked defensively anyway. A configuration error
// aborts only the affected scheme unless no scheme produces a usable
// result, in which case the whole computation fails.
type ConfigurationError struct {
	SchemeID string
	Field    string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("scheme %s: configuration error in %s: %s", e.SchemeID, e.Field, e.Reason)
	}
	return fmt.Sprintf("scheme %s: configuration error: %s", e.SchemeID, e.Reason)
}

// ComputationError marks an arithmetic failure local to one scheme, such
// as a zero annuity divisor. The scheme contributes zero and the error is
// recorded; the overall result still completes.
type ComputationError struct {
	SchemeID string
	Reason   string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("scheme %s: computation error: %s", e.SchemeID, e.Reason)
}
