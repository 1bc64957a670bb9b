package services

import "errors"

// Failure classes shared by the member registration and admin auth
// flows. Handlers map these onto HTTP status codes; anything not
// wrapping one of these sentinels is treated as an internal error.
var (
	// ErrValidation indicates missing or malformed input
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates no matching record
	ErrNotFound = errors.New("record not found")

	// ErrConflict indicates the record's state precludes the operation
	ErrConflict = errors.New("conflicting state")

	// ErrUnauthorized indicates a credential mismatch
	ErrUnauthorized = errors.New("invalid credentials")

	// ErrInvalidState indicates the operation is not valid for the
	// record's current lifecycle state
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrOTPExpired indicates the OTP window has passed; a fresh OTP
	// must be requested
	ErrOTPExpired = errors.New("OTP has expired")

	// ErrDelivery indicates a notification dispatch failure whose data
	// effects were NOT rolled back
	ErrDelivery = errors.New("notification delivery failed")
)
