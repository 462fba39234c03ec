package types

import "errors"

// Error kinds shared by every layer. Wrap them with fmt.Errorf("...: %w")
// and classify with errors.Is.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrValidation      = errors.New("invalid input")
	ErrIOFailure       = errors.New("asset storage failure")
	ErrInternal        = errors.New("internal error")
)
