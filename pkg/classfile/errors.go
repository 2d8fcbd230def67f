package classfile

import "errors"

var (
	// ErrInvalidIndex indicates a constant pool index that is zero, out of range,
	// or points at the unusable upper slot of a long/double entry.
	ErrInvalidIndex = errors.New("classfile: invalid constant pool index")

	// ErrPoolTypeMismatch indicates a constant pool entry with an unexpected tag.
	ErrPoolTypeMismatch = errors.New("classfile: constant pool type mismatch")

	// ErrPoolLayout indicates a pool whose unused slots do not sit exactly
	// after its long and double entries.
	ErrPoolLayout = errors.New("classfile: invalid constant pool layout")

	// ErrFormatLengthMismatch indicates an attribute whose declared length does
	// not match the bytes available or consumed while decoding its payload.
	ErrFormatLengthMismatch = errors.New("classfile: attribute length mismatch")

	// ErrUnexpectedPayload is reported when a marker attribute that is defined
	// to be empty carries bytes. It is a warning unless Options.Strict is set.
	ErrUnexpectedPayload = errors.New("classfile: unexpected attribute payload")
)
