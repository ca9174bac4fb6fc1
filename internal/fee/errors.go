package fee

import (
	"errors"
	"fmt"
)

// ErrorKind classifies calculator failures.
type ErrorKind string

const (
	InvalidVehicleClass ErrorKind = "invalid_vehicle_class"
	InvalidRateTable    ErrorKind = "invalid_rate_table"
	InvalidTimestamp    ErrorKind = "invalid_timestamp"
	InvalidDuration     ErrorKind = "invalid_duration"
	CalculationFailed   ErrorKind = "calculation_failed"
)

// Error is returned by every failing calculator call. Field names the offending input
// (a rate field, "check_in_time" or "check_out_time") when there is one.
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is makes errors.Is(err, &Error{Kind: k}) match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Field == "" || t.Field == e.Field)
}

func newError(kind ErrorKind, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a calculator error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
