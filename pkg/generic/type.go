// Package generic builds classfile structures programmatically: types,
// a de-duplicating constant pool, field and method descriptors, and the
// resolution of member instructions against a constant pool.
//
// Everything in this package assumes a single writer. Descriptors built for
// one class share one ConstantPoolGen and must not be mutated concurrently.
package generic

import (
	"fmt"
	"strings"
)

// TypeTag classifies a Type.
type TypeTag uint8

const (
	TBoolean TypeTag = 4
	TChar    TypeTag = 5
	TFloat   TypeTag = 6
	TDouble  TypeTag = 7
	TByte    TypeTag = 8
	TShort   TypeTag = 9
	TInt     TypeTag = 10
	TLong    TypeTag = 11
	TVoid    TypeTag = 12
	TArray   TypeTag = 13
	TObject  TypeTag = 14
	TUnknown TypeTag = 15
	// TAddress is the verifier's return-address type. It is never a valid
	// declared type.
	TAddress TypeTag = 16
)

// Type is a JVM type: basic, object, array, or the internal address type.
type Type interface {
	Tag() TypeTag
	// Signature returns the descriptor form, e.g. "I" or "[Ljava/lang/String;".
	Signature() string
	// String returns the Java source form, e.g. "int" or "java.lang.String[]".
	String() string
	// Size is the number of local variable slots the type occupies.
	Size() int
}

// ReferenceType is implemented by ObjectType and ArrayType.
type ReferenceType interface {
	Type
	referenceType()
}

// BasicType is a primitive type or void.
type BasicType struct {
	tag  TypeTag
	sig  string
	name string
}

var (
	Boolean = &BasicType{TBoolean, "Z", "boolean"}
	Byte    = &BasicType{TByte, "B", "byte"}
	Char    = &BasicType{TChar, "C", "char"}
	Short   = &BasicType{TShort, "S", "short"}
	Int     = &BasicType{TInt, "I", "int"}
	Long    = &BasicType{TLong, "J", "long"}
	Float   = &BasicType{TFloat, "F", "float"}
	Double  = &BasicType{TDouble, "D", "double"}
	Void    = &BasicType{TVoid, "V", "void"}
)

var basicBySig = map[byte]*BasicType{
	'Z': Boolean, 'B': Byte, 'C': Char, 'S': Short, 'I': Int,
	'J': Long, 'F': Float, 'D': Double, 'V': Void,
}

func (t *BasicType) Tag() TypeTag      { return t.tag }
func (t *BasicType) Signature() string { return t.sig }
func (t *BasicType) String() string    { return t.name }

func (t *BasicType) Size() int {
	switch t.tag {
	case TLong, TDouble:
		return 2
	case TVoid:
		return 0
	}
	return 1
}

// AddressType is the return address pushed by jsr. It exists so verifier
// code can name it; members may not be declared with it.
type AddressType struct{}

// Address is the single AddressType value.
var Address Type = AddressType{}

func (AddressType) Tag() TypeTag      { return TAddress }
func (AddressType) Signature() string { return "<return address>" }
func (AddressType) String() string    { return "<return address>" }
func (AddressType) Size() int         { return 1 }

// ObjectType is a class or interface type. ClassName is dotted.
type ObjectType struct {
	ClassName string
}

// NewObjectType accepts a dotted or slash-separated class name.
func NewObjectType(className string) *ObjectType {
	return &ObjectType{ClassName: strings.ReplaceAll(className, "/", ".")}
}

func (t *ObjectType) Tag() TypeTag { return TObject }
func (t *ObjectType) Signature() string {
	return "L" + strings.ReplaceAll(t.ClassName, ".", "/") + ";"
}
func (t *ObjectType) String() string { return t.ClassName }
func (t *ObjectType) Size() int      { return 1 }
func (t *ObjectType) referenceType() {}

// InternalName returns the slash-separated class name.
func (t *ObjectType) InternalName() string {
	return strings.ReplaceAll(t.ClassName, ".", "/")
}

// ArrayType is an array of a basic or object element type.
type ArrayType struct {
	Element    Type
	Dimensions int
}

// NewArrayType returns an array of elem with dims dimensions. An array
// element type is flattened into the result.
func NewArrayType(elem Type, dims int) (*ArrayType, error) {
	if dims < 1 || dims > 255 {
		return nil, fmt.Errorf("%w: array dimensions %d", ErrInvalidType, dims)
	}
	switch e := elem.(type) {
	case *ArrayType:
		return NewArrayType(e.Element, e.Dimensions+dims)
	case *BasicType:
		if e.tag == TVoid {
			return nil, fmt.Errorf("%w: array of void", ErrInvalidType)
		}
	case AddressType:
		return nil, fmt.Errorf("%w: array of %s", ErrInvalidType, e)
	}
	return &ArrayType{Element: elem, Dimensions: dims}, nil
}

func (t *ArrayType) Tag() TypeTag { return TArray }
func (t *ArrayType) Signature() string {
	return strings.Repeat("[", t.Dimensions) + t.Element.Signature()
}
func (t *ArrayType) String() string { return t.Element.String() + strings.Repeat("[]", t.Dimensions) }
func (t *ArrayType) Size() int      { return 1 }
func (t *ArrayType) referenceType() {}

// ElementType returns the type with one dimension removed.
func (t *ArrayType) ElementType() Type {
	if t.Dimensions == 1 {
		return t.Element
	}
	return &ArrayType{Element: t.Element, Dimensions: t.Dimensions - 1}
}

// TypeFromSignature parses a field descriptor such as "I", "Ljava/lang/Object;"
// or "[[J". The whole string must be consumed.
func TypeFromSignature(sig string) (Type, error) {
	t, n, err := parseType(sig, 0)
	if err != nil {
		return nil, err
	}
	if n != len(sig) {
		return nil, fmt.Errorf("%w: trailing data in %q", ErrInvalidDescriptor, sig)
	}
	return t, nil
}

// parseType parses one type starting at sig[pos] and returns the position
// after it.
func parseType(sig string, pos int) (Type, int, error) {
	if pos >= len(sig) {
		return nil, pos, fmt.Errorf("%w: unexpected end of %q", ErrInvalidDescriptor, sig)
	}
	switch c := sig[pos]; c {
	case 'L':
		end := strings.IndexByte(sig[pos:], ';')
		if end <= 1 {
			return nil, pos, fmt.Errorf("%w: bad class type in %q", ErrInvalidDescriptor, sig)
		}
		return NewObjectType(sig[pos+1 : pos+end]), pos + end + 1, nil
	case '[':
		dims := 0
		for pos < len(sig) && sig[pos] == '[' {
			dims++
			pos++
		}
		elem, next, err := parseType(sig, pos)
		if err != nil {
			return nil, next, err
		}
		at, err := NewArrayType(elem, dims)
		if err != nil {
			return nil, next, fmt.Errorf("%w: %q: %w", ErrInvalidDescriptor, sig, err)
		}
		return at, next, nil
	default:
		if bt, ok := basicBySig[c]; ok {
			return bt, pos + 1, nil
		}
		return nil, pos, fmt.Errorf("%w: invalid type descriptor char '%c' in %q", ErrInvalidDescriptor, c, sig)
	}
}

// ArgumentTypes parses the parameter list of a method descriptor.
func ArgumentTypes(methodSig string) ([]Type, error) {
	if len(methodSig) == 0 || methodSig[0] != '(' {
		return nil, fmt.Errorf("%w: invalid method descriptor %q", ErrInvalidDescriptor, methodSig)
	}
	var args []Type
	pos := 1
	for pos < len(methodSig) && methodSig[pos] != ')' {
		t, next, err := parseType(methodSig, pos)
		if err != nil {
			return nil, err
		}
		if t == Void {
			return nil, fmt.Errorf("%w: void parameter in %q", ErrInvalidDescriptor, methodSig)
		}
		args = append(args, t)
		pos = next
	}
	if pos >= len(methodSig) {
		return nil, fmt.Errorf("%w: unterminated parameters in %q", ErrInvalidDescriptor, methodSig)
	}
	return args, nil
}

// ReturnType parses the return type of a method descriptor.
func ReturnType(methodSig string) (Type, error) {
	end := strings.IndexByte(methodSig, ')')
	if len(methodSig) == 0 || methodSig[0] != '(' || end < 0 {
		return nil, fmt.Errorf("%w: invalid method descriptor %q", ErrInvalidDescriptor, methodSig)
	}
	return TypeFromSignature(methodSig[end+1:])
}

// MethodSignature builds a method descriptor.
func MethodSignature(ret Type, args []Type) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, a := range args {
		sb.WriteString(a.Signature())
	}
	sb.WriteByte(')')
	sb.WriteString(ret.Signature())
	return sb.String()
}
