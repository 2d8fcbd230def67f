package generic

import (
	"fmt"
	"strings"

	"github.com/daimatz/classkit/pkg/classfile"
)

// Opcode is a JVM instruction opcode.
type Opcode uint8

// Member access and invocation opcodes.
const (
	GetStatic       Opcode = 0xb2
	PutStatic       Opcode = 0xb3
	GetField        Opcode = 0xb4
	PutField        Opcode = 0xb5
	InvokeVirtual   Opcode = 0xb6
	InvokeSpecial   Opcode = 0xb7
	InvokeStatic    Opcode = 0xb8
	InvokeInterface Opcode = 0xb9
)

var opcodeNames = map[Opcode]string{
	GetStatic:       "getstatic",
	PutStatic:       "putstatic",
	GetField:        "getfield",
	PutField:        "putfield",
	InvokeVirtual:   "invokevirtual",
	InvokeSpecial:   "invokespecial",
	InvokeStatic:    "invokestatic",
	InvokeInterface: "invokeinterface",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode(0x%02x)", uint8(op))
}

// IsFieldAccess reports whether op reads or writes a field.
func (op Opcode) IsFieldAccess() bool { return op >= GetStatic && op <= PutField }

// FieldOrMethod is an instruction whose operand is a constant pool index of
// a field or method reference.
type FieldOrMethod struct {
	Opcode Opcode
	Index  uint16
}

// NewFieldOrMethod returns a member instruction. op must be a field access
// or invoke opcode.
func NewFieldOrMethod(op Opcode, index uint16) (FieldOrMethod, error) {
	if _, ok := opcodeNames[op]; !ok {
		return FieldOrMethod{}, fmt.Errorf("%s is not a field or method instruction", op)
	}
	return FieldOrMethod{Opcode: op, Index: index}, nil
}

func (i FieldOrMethod) String() string {
	return fmt.Sprintf("%s #%d", i.Opcode, i.Index)
}

// memberRef returns the member reference entry and its NameAndType.
func (i FieldOrMethod) memberRef(cp *classfile.ConstantPool) (classfile.MemberRef, *classfile.ConstantNameAndType, error) {
	ref, err := cp.GetMemberRef(i.Index)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", i, err)
	}
	_, natIndex := ref.RefIndices()
	nat, err := cp.GetNameAndType(natIndex)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: name and type: %w", i, err)
	}
	return ref, nat, nil
}

// Signature returns the descriptor of the referenced field or method.
func (i FieldOrMethod) Signature(cpg PoolProvider) (string, error) {
	cp := cpg.ConstantPool()
	_, nat, err := i.memberRef(cp)
	if err != nil {
		return "", err
	}
	sig, err := cp.GetUtf8(nat.DescriptorIndex)
	if err != nil {
		return "", fmt.Errorf("%s: descriptor: %w", i, err)
	}
	return sig, nil
}

// Name returns the name of the referenced field or method.
func (i FieldOrMethod) Name(cpg PoolProvider) (string, error) {
	cp := cpg.ConstantPool()
	_, nat, err := i.memberRef(cp)
	if err != nil {
		return "", err
	}
	name, err := cp.GetUtf8(nat.NameIndex)
	if err != nil {
		return "", fmt.Errorf("%s: name: %w", i, err)
	}
	return name, nil
}

// rawClassName returns the declaring class text in internal form; array
// classes come back as descriptors such as "[I".
func (i FieldOrMethod) rawClassName(cp *classfile.ConstantPool) (string, error) {
	ref, err := cp.GetMemberRef(i.Index)
	if err != nil {
		return "", fmt.Errorf("%s: %w", i, err)
	}
	classIndex, _ := ref.RefIndices()
	name, err := cp.GetConstantString(classIndex, classfile.TagClass)
	if err != nil {
		return "", fmt.Errorf("%s: class: %w", i, err)
	}
	return name, nil
}

// ClassName returns the dotted name of the referenced class or interface.
func (i FieldOrMethod) ClassName(cpg PoolProvider) (string, error) {
	name, err := i.rawClassName(cpg.ConstantPool())
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(name, "/", "."), nil
}

// ClassType returns the referenced class as an ObjectType.
//
// Deprecated: if the instruction references an array class the result is
// not a valid ObjectType. Use ReferenceType.
func (i FieldOrMethod) ClassType(cpg PoolProvider) (*ObjectType, error) {
	name, err := i.ClassName(cpg)
	if err != nil {
		return nil, err
	}
	return NewObjectType(name), nil
}

// LoadClassType returns the type whose class must be loaded to execute the
// instruction.
//
// Deprecated: shares the array limitation of ClassType.
func (i FieldOrMethod) LoadClassType(cpg PoolProvider) (*ObjectType, error) {
	return i.ClassType(cpg)
}

// ReferenceType returns the class, interface or array class referenced by
// the instruction: an *ArrayType when the class text starts with '[',
// otherwise an *ObjectType.
func (i FieldOrMethod) ReferenceType(cpg PoolProvider) (ReferenceType, error) {
	name, err := i.rawClassName(cpg.ConstantPool())
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(name, "[") {
		t, err := TypeFromSignature(name)
		if err != nil {
			return nil, fmt.Errorf("%s: array class: %w", i, err)
		}
		return t.(*ArrayType), nil
	}
	return NewObjectType(name), nil
}

// Type returns the field type for field instructions and the return type
// for invocations.
func (i FieldOrMethod) Type(cpg PoolProvider) (Type, error) {
	sig, err := i.Signature(cpg)
	if err != nil {
		return nil, err
	}
	if i.Opcode.IsFieldAccess() {
		return TypeFromSignature(sig)
	}
	return ReturnType(sig)
}

// ResolvedMember is a member reference with every index followed.
type ResolvedMember struct {
	Name        string
	Signature   string
	Declaring   ReferenceType
	Instruction FieldOrMethod
}

// Resolve follows the member reference, its NameAndType and its Class
// entries in one pass.
func (i FieldOrMethod) Resolve(cpg PoolProvider) (*ResolvedMember, error) {
	name, err := i.Name(cpg)
	if err != nil {
		return nil, err
	}
	sig, err := i.Signature(cpg)
	if err != nil {
		return nil, err
	}
	decl, err := i.ReferenceType(cpg)
	if err != nil {
		return nil, err
	}
	return &ResolvedMember{Name: name, Signature: sig, Declaring: decl, Instruction: i}, nil
}
