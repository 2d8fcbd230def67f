package generic

import "errors"

var (
	// ErrInvalidType indicates a type that may not be used where it was
	// given, such as the address type as a member type.
	ErrInvalidType = errors.New("generic: invalid type")

	// ErrInvalidDescriptor indicates a malformed type or method descriptor.
	ErrInvalidDescriptor = errors.New("generic: invalid descriptor")
)
