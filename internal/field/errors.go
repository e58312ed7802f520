package field

import "errors"

var (
	// ErrInvalidCharacter is returned when a keystroke fails the safety
	// filter or the field's category validation.
	ErrInvalidCharacter = errors.New("field: invalid character")
	// ErrFieldFull names typing into a field already at its maximum
	// length with no room to advance. No function in this module
	// returns it.
	ErrFieldFull = errors.New("field: full")
	// ErrNoActiveField is returned when there is no field at the cursor.
	ErrNoActiveField = errors.New("field: no active field")
	// ErrCursorProtected is returned when input targets a protected
	// field.
	ErrCursorProtected = errors.New("field: cursor is in a protected field")
	// ErrMandatoryEnter names leaving a mandatory-entry field empty. No
	// function in this module returns it.
	ErrMandatoryEnter = errors.New("field: mandatory entry required")
	// ErrNumericOnly, ErrAlphaOnly, ErrDigitsOnly name category-specific
	// validation failures. No function in this module returns them;
	// Validate reports a failure as false and the session layer turns
	// that into ErrInvalidCharacter.
	ErrNumericOnly = errors.New("field: numeric input only")
	ErrAlphaOnly   = errors.New("field: alphabetic input only")
	ErrDigitsOnly  = errors.New("field: digit input only")
)
