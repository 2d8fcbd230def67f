package generic

import (
	"fmt"

	"github.com/daimatz/classkit/pkg/classfile"
)

// attributeList is the storage behind a MemberGen's attributes. Shallow
// duplicates point at the same list.
type attributeList struct {
	items []classfile.Attribute
}

// MemberGen holds what fields and methods under construction have in
// common: name, type, access flags, the shared constant pool and an ordered
// list of attributes.
type MemberGen struct {
	name  string
	typ   Type
	cp    *ConstantPoolGen
	flags classfile.AccessFlags
	attrs *attributeList
}

func newMemberGen(flags classfile.AccessFlags, typ Type, name string, cp *ConstantPoolGen) (MemberGen, error) {
	m := MemberGen{name: name, cp: cp, flags: flags, attrs: &attributeList{}}
	if err := m.SetType(typ); err != nil {
		return MemberGen{}, err
	}
	return m, nil
}

// Name returns the member name.
func (m *MemberGen) Name() string { return m.name }

// SetName renames the member.
func (m *MemberGen) SetName(name string) { m.name = name }

// Type returns the field type, or the return type of a method.
func (m *MemberGen) Type() Type { return m.typ }

// SetType changes the member type. The address type is rejected with
// ErrInvalidType and the stored type is left unchanged.
func (m *MemberGen) SetType(t Type) error {
	if t == nil {
		return fmt.Errorf("%w: nil", ErrInvalidType)
	}
	if t.Tag() == TAddress {
		return fmt.Errorf("%w: type can not be %s", ErrInvalidType, t)
	}
	m.typ = t
	return nil
}

// ConstantPool returns the pool the member's indices refer to.
func (m *MemberGen) ConstantPool() *ConstantPoolGen { return m.cp }

// SetConstantPool rebinds the member. Existing attributes keep their pool.
func (m *MemberGen) SetConstantPool(cp *ConstantPoolGen) { m.cp = cp }

// AccessFlags returns the access flags.
func (m *MemberGen) AccessFlags() classfile.AccessFlags { return m.flags }

func (m *MemberGen) SetAccessFlags(flags classfile.AccessFlags) { m.flags = flags }

func (m *MemberGen) IsStatic() bool { return m.flags.IsStatic() }

func (m *MemberGen) IsFinal() bool { return m.flags.IsFinal() }

func (m *MemberGen) list() *attributeList {
	if m.attrs == nil {
		m.attrs = &attributeList{}
	}
	return m.attrs
}

// AddAttribute appends a. Attributes of the same kind may repeat.
func (m *MemberGen) AddAttribute(a classfile.Attribute) {
	l := m.list()
	l.items = append(l.items, a)
}

// RemoveAttribute removes the first attribute structurally equal to a and
// reports whether one was found.
func (m *MemberGen) RemoveAttribute(a classfile.Attribute) bool {
	l := m.list()
	for i, cur := range l.items {
		if classfile.AttributesEqual(cur, a) {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

// ClearAttributes removes every attribute.
func (m *MemberGen) ClearAttributes() {
	m.list().items = nil
}

// Attributes returns a snapshot of the attributes in insertion order.
// Changing the returned slice does not affect the member.
func (m *MemberGen) Attributes() []classfile.Attribute {
	items := m.list().items
	out := make([]classfile.Attribute, len(items))
	copy(out, items)
	return out
}

// ShallowDuplicate returns a new MemberGen that shares the attribute list
// and the constant pool with m. Adding or removing attributes on either is
// visible through both.
func (m *MemberGen) ShallowDuplicate() *MemberGen {
	m.list()
	c := *m
	return &c
}

// Clone is ShallowDuplicate.
func (m *MemberGen) Clone() *MemberGen { return m.ShallowDuplicate() }

// DeepCopy returns a MemberGen bound to cp with its own attribute list.
// Every attribute is copied with Attribute.Copy.
func (m *MemberGen) DeepCopy(cp *ConstantPoolGen) *MemberGen {
	c := *m
	c.cp = cp
	c.attrs = &attributeList{items: classfile.CopyAttributes(m.list().items, cp.ConstantPool())}
	return &c
}

// attributeNameIndex adds name to the pool for a generated attribute.
func (m *MemberGen) attributeNameIndex(name string) (uint16, error) {
	idx, err := m.cp.AddUtf8(name)
	if err != nil {
		return 0, fmt.Errorf("adding %s attribute name: %w", name, err)
	}
	return idx, nil
}

// FieldGen builds a field.
type FieldGen struct {
	MemberGen
	initValue any
}

// NewFieldGen returns a field of type typ named name.
func NewFieldGen(flags classfile.AccessFlags, typ Type, name string, cp *ConstantPoolGen) (*FieldGen, error) {
	m, err := newMemberGen(flags, typ, name, cp)
	if err != nil {
		return nil, err
	}
	if typ == Void {
		return nil, fmt.Errorf("%w: field %s can not be void", ErrInvalidType, name)
	}
	return &FieldGen{MemberGen: m}, nil
}

// Signature returns the field descriptor.
func (f *FieldGen) Signature() string { return f.typ.Signature() }

// SetType changes the field type. Void is rejected, as is a type that no
// longer matches the value set by SetInitValue; the stored type is left
// unchanged in both cases.
func (f *FieldGen) SetType(t Type) error {
	if t == Void {
		return fmt.Errorf("%w: field %s can not be void", ErrInvalidType, f.name)
	}
	if t != nil && f.initValue != nil && !initValueFits(t, f.initValue) {
		return fmt.Errorf("%w: %s does not hold the %T initial value of field %s", ErrInvalidType, t, f.initValue, f.name)
	}
	return f.MemberGen.SetType(t)
}

// SetInitValue sets the value emitted as a ConstantValue attribute. The Go
// type of v must match the field type: int32 for int-like types, int64,
// float32, float64, or string for java.lang.String.
func (f *FieldGen) SetInitValue(v any) error {
	if !f.flags.IsFinal() {
		return fmt.Errorf("%w: field %s must be final to have an initial value", ErrInvalidType, f.name)
	}
	if !initValueFits(f.typ, v) {
		return fmt.Errorf("%w: %T value for field %s of type %s", ErrInvalidType, v, f.name, f.typ)
	}
	f.initValue = v
	return nil
}

func initValueFits(t Type, v any) bool {
	switch v.(type) {
	case int32:
		switch t {
		case Int, Short, Char, Byte, Boolean:
			return true
		}
	case int64:
		return t == Long
	case float32:
		return t == Float
	case float64:
		return t == Double
	case string:
		ot, isObj := t.(*ObjectType)
		return isObj && ot.ClassName == "java.lang.String"
	}
	return false
}

// InitValue returns the value set by SetInitValue, or nil.
func (f *FieldGen) InitValue() any { return f.initValue }

// Clone returns a shallow duplicate sharing attributes and pool.
func (f *FieldGen) Clone() *FieldGen {
	c := *f
	c.MemberGen = *f.ShallowDuplicate()
	return &c
}

// DeepCopy returns an independent copy bound to cp.
func (f *FieldGen) DeepCopy(cp *ConstantPoolGen) *FieldGen {
	c := *f
	c.MemberGen = *f.MemberGen.DeepCopy(cp)
	return &c
}

func (f *FieldGen) constantValueIndex() (uint16, error) {
	switch v := f.initValue.(type) {
	case int32:
		return f.cp.AddInteger(v)
	case int64:
		return f.cp.AddLong(v)
	case float32:
		return f.cp.AddFloat(v)
	case float64:
		return f.cp.AddDouble(v)
	case string:
		return f.cp.AddString(v)
	}
	return 0, fmt.Errorf("%w: unsupported initial value %T", ErrInvalidType, f.initValue)
}

// Field adds the field's name and descriptor to the pool and returns the
// field_info. A ConstantValue attribute is prepended when an initial value
// is set.
func (f *FieldGen) Field() (classfile.FieldInfo, error) {
	if f.typ == Void {
		return classfile.FieldInfo{}, fmt.Errorf("%w: field %s can not be void", ErrInvalidType, f.name)
	}
	nameIndex, err := f.cp.AddUtf8(f.name)
	if err != nil {
		return classfile.FieldInfo{}, err
	}
	sig := f.Signature()
	sigIndex, err := f.cp.AddUtf8(sig)
	if err != nil {
		return classfile.FieldInfo{}, err
	}

	attrs := f.Attributes()
	if f.initValue != nil {
		attrName, err := f.attributeNameIndex(classfile.NameConstantValue)
		if err != nil {
			return classfile.FieldInfo{}, err
		}
		valueIndex, err := f.constantValueIndex()
		if err != nil {
			return classfile.FieldInfo{}, err
		}
		cv := classfile.NewConstantValue(attrName, valueIndex, f.cp.ConstantPool())
		attrs = append([]classfile.Attribute{cv}, attrs...)
	}

	return classfile.FieldInfo{
		AccessFlags:     f.flags,
		NameIndex:       nameIndex,
		DescriptorIndex: sigIndex,
		Name:            f.name,
		Descriptor:      sig,
		Attributes:      attrs,
	}, nil
}

// MethodGen builds a method header. The type of a MethodGen is its return
// type.
type MethodGen struct {
	MemberGen
	className  string
	argTypes   []Type
	argNames   []string
	exceptions []string
}

// NewMethodGen returns a method of class className. argNames may be nil.
func NewMethodGen(flags classfile.AccessFlags, ret Type, args []Type, argNames []string,
	name, className string, cp *ConstantPoolGen) (*MethodGen, error) {
	m, err := newMemberGen(flags, ret, name, cp)
	if err != nil {
		return nil, err
	}
	for i, a := range args {
		if a == nil || a.Tag() == TAddress || a == Void {
			return nil, fmt.Errorf("%w: argument %d of %s", ErrInvalidType, i, name)
		}
	}
	if argNames != nil && len(argNames) != len(args) {
		return nil, fmt.Errorf("%w: %d argument names for %d arguments", ErrInvalidType, len(argNames), len(args))
	}
	return &MethodGen{
		MemberGen: m,
		className: className,
		argTypes:  append([]Type(nil), args...),
		argNames:  append([]string(nil), argNames...),
	}, nil
}

// ClassName returns the declaring class name.
func (m *MethodGen) ClassName() string { return m.className }

// ReturnType is Type.
func (m *MethodGen) ReturnType() Type { return m.typ }

// ArgumentTypes returns a copy of the argument types.
func (m *MethodGen) ArgumentTypes() []Type { return append([]Type(nil), m.argTypes...) }

// ArgumentNames returns a copy of the argument names.
func (m *MethodGen) ArgumentNames() []string { return append([]string(nil), m.argNames...) }

// Signature returns the method descriptor.
func (m *MethodGen) Signature() string { return MethodSignature(m.typ, m.argTypes) }

// AddException declares a thrown exception class, dotted or internal.
func (m *MethodGen) AddException(className string) {
	for _, e := range m.exceptions {
		if e == className {
			return
		}
	}
	m.exceptions = append(m.exceptions, className)
}

// RemoveException removes a declared exception.
func (m *MethodGen) RemoveException(className string) {
	for i, e := range m.exceptions {
		if e == className {
			m.exceptions = append(m.exceptions[:i:i], m.exceptions[i+1:]...)
			return
		}
	}
}

// Exceptions returns the declared exceptions.
func (m *MethodGen) Exceptions() []string { return append([]string(nil), m.exceptions...) }

// Clone returns a shallow duplicate sharing attributes and pool. Argument
// and exception lists are copied.
func (m *MethodGen) Clone() *MethodGen {
	c := *m
	c.MemberGen = *m.ShallowDuplicate()
	c.argTypes = m.ArgumentTypes()
	c.argNames = m.ArgumentNames()
	c.exceptions = m.Exceptions()
	return &c
}

// DeepCopy returns an independent copy bound to cp.
func (m *MethodGen) DeepCopy(cp *ConstantPoolGen) *MethodGen {
	c := *m
	c.MemberGen = *m.MemberGen.DeepCopy(cp)
	c.argTypes = m.ArgumentTypes()
	c.argNames = m.ArgumentNames()
	c.exceptions = m.Exceptions()
	return &c
}

// Method adds the method's name and descriptor to the pool and returns the
// method_info. Declared exceptions are emitted as an Exceptions attribute.
func (m *MethodGen) Method() (classfile.MethodInfo, error) {
	nameIndex, err := m.cp.AddUtf8(m.name)
	if err != nil {
		return classfile.MethodInfo{}, err
	}
	sig := m.Signature()
	sigIndex, err := m.cp.AddUtf8(sig)
	if err != nil {
		return classfile.MethodInfo{}, err
	}

	attrs := m.Attributes()
	if len(m.exceptions) > 0 {
		attrName, err := m.attributeNameIndex(classfile.NameExceptions)
		if err != nil {
			return classfile.MethodInfo{}, err
		}
		table := make([]uint16, len(m.exceptions))
		for i, e := range m.exceptions {
			if table[i], err = m.cp.AddClass(e); err != nil {
				return classfile.MethodInfo{}, err
			}
		}
		attrs = append(attrs, classfile.NewExceptions(attrName, table, m.cp.ConstantPool()))
	}

	info := classfile.MethodInfo{
		AccessFlags:     m.flags,
		NameIndex:       nameIndex,
		DescriptorIndex: sigIndex,
		Name:            m.name,
		Descriptor:      sig,
		Attributes:      attrs,
	}
	for _, a := range attrs {
		if code, ok := a.(*classfile.Code); ok {
			info.Code = code
			break
		}
	}
	return info, nil
}
