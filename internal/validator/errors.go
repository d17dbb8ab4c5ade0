package validator

import "errors"

type Kind string

const (
	KindMissingField         Kind = "missing_field"
	KindNotANumber           Kind = "not_a_number"
	KindNonPositiveValue     Kind = "non_positive_value"
	KindOutOfPrecision       Kind = "out_of_precision"
	KindUnknownReference     Kind = "unknown_reference"
	KindPercentageOutOfRange Kind = "percentage_out_of_range"
	KindInvalidDate          Kind = "invalid_date"
	KindInvalidDateRange     Kind = "invalid_date_range"
)

// ValidationError describes the first rule a candidate agreement broke.
type ValidationError struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is matches any ValidationError of the same kind, so callers can compare
// against the exported sentinels with errors.Is.
func (e *ValidationError) Is(target error) bool {
	var other *ValidationError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

var (
	ErrMissingField         = &ValidationError{Kind: KindMissingField}
	ErrNotANumber           = &ValidationError{Kind: KindNotANumber}
	ErrNonPositiveValue     = &ValidationError{Kind: KindNonPositiveValue}
	ErrOutOfPrecision       = &ValidationError{Kind: KindOutOfPrecision}
	ErrUnknownReference     = &ValidationError{Kind: KindUnknownReference}
	ErrPercentageOutOfRange = &ValidationError{Kind: KindPercentageOutOfRange}
	ErrInvalidDate          = &ValidationError{Kind: KindInvalidDate}
	ErrInvalidDateRange     = &ValidationError{Kind: KindInvalidDateRange}
)

// AsValidationError unwraps err into a ValidationError when it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}
