package generic

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/classkit/pkg/classfile"
)

// poolOnly adapts a bare constant pool to PoolProvider.
type poolOnly struct{ cp *classfile.ConstantPool }

func (p poolOnly) ConstantPool() *classfile.ConstantPool { return p.cp }

// fooPool is {1: Utf8 "Foo", 2: Class #1, 3: Utf8 "x", 4: Utf8 "I",
// 5: NameAndType #3:#4, 6: Fieldref #2.#5}.
func fooPool() poolOnly {
	return poolOnly{classfile.NewConstantPool(
		&classfile.ConstantUtf8{Value: "Foo"},
		&classfile.ConstantClass{NameIndex: 1},
		&classfile.ConstantUtf8{Value: "x"},
		&classfile.ConstantUtf8{Value: "I"},
		&classfile.ConstantNameAndType{NameIndex: 3, DescriptorIndex: 4},
		&classfile.ConstantFieldref{ClassIndex: 2, NameAndTypeIndex: 5},
	)}
}

func TestResolveFieldref(t *testing.T) {
	cp := fooPool()
	insn := FieldOrMethod{Opcode: GetField, Index: 6}

	name, err := insn.Name(cp)
	require.NoError(t, err)
	assert.Equal(t, "x", name)

	sig, err := insn.Signature(cp)
	require.NoError(t, err)
	assert.Equal(t, "I", sig)

	className, err := insn.ClassName(cp)
	require.NoError(t, err)
	assert.Equal(t, "Foo", className)

	rt, err := insn.ReferenceType(cp)
	require.NoError(t, err)
	assert.Equal(t, &ObjectType{ClassName: "Foo"}, rt)

	typ, err := insn.Type(cp)
	require.NoError(t, err)
	assert.Equal(t, Type(Int), typ)

	rm, err := insn.Resolve(cp)
	require.NoError(t, err)
	assert.Equal(t, "x", rm.Name)
	assert.Equal(t, "I", rm.Signature)
	assert.Equal(t, "Foo", rm.Declaring.String())
	assert.Equal(t, insn, rm.Instruction)
}

func TestResolveWithConstantPoolGen(t *testing.T) {
	cpg := NewConstantPoolGen()
	idx, err := cpg.AddMethodref("java.util.ArrayList", "add", "(Ljava/lang/Object;)Z")
	require.NoError(t, err)

	insn, err := NewFieldOrMethod(InvokeVirtual, idx)
	require.NoError(t, err)

	className, err := insn.ClassName(cpg)
	require.NoError(t, err)
	assert.Equal(t, "java.util.ArrayList", className)

	ot, err := insn.ClassType(cpg)
	require.NoError(t, err)
	assert.Equal(t, "Ljava/util/ArrayList;", ot.Signature())

	lt, err := insn.LoadClassType(cpg)
	require.NoError(t, err)
	assert.Equal(t, ot, lt)

	ret, err := insn.Type(cpg)
	require.NoError(t, err)
	assert.Equal(t, Type(Boolean), ret)
	assert.Equal(t, fmt.Sprintf("invokevirtual #%d", idx), insn.String())
}

func TestReferenceTypeOfArrayClass(t *testing.T) {
	cpg := NewConstantPoolGen()
	idx, err := cpg.AddMethodref("[I", "clone", "()Ljava/lang/Object;")
	require.NoError(t, err)
	insn := FieldOrMethod{Opcode: InvokeVirtual, Index: idx}

	rt, err := insn.ReferenceType(cpg)
	require.NoError(t, err)
	at, ok := rt.(*ArrayType)
	require.True(t, ok, "got %T", rt)
	assert.Equal(t, Type(Int), at.Element)
	assert.Equal(t, 1, at.Dimensions)

	idx, err = cpg.AddMethodref("[[Ljava/lang/String;", "clone", "()Ljava/lang/Object;")
	require.NoError(t, err)
	rt, err = FieldOrMethod{Opcode: InvokeVirtual, Index: idx}.ReferenceType(cpg)
	require.NoError(t, err)
	assert.Equal(t, "java.lang.String[][]", rt.String())

	// The deprecated accessor has no array form.
	ot, err := insn.ClassType(cpg)
	require.NoError(t, err)
	assert.Equal(t, "[I", ot.ClassName)
}

func TestReferenceTypeConvertsSlashes(t *testing.T) {
	cpg := NewConstantPoolGen()
	idx, err := cpg.AddInterfaceMethodref("java/util/List", "size", "()I")
	require.NoError(t, err)

	rt, err := FieldOrMethod{Opcode: InvokeInterface, Index: idx}.ReferenceType(cpg)
	require.NoError(t, err)
	ot, ok := rt.(*ObjectType)
	require.True(t, ok)
	assert.Equal(t, "java.util.List", ot.ClassName)
}

func TestResolveErrors(t *testing.T) {
	cp := fooPool()

	tests := []struct {
		name    string
		index   uint16
		call    func(FieldOrMethod) error
		wantErr error
	}{
		{"name of utf8 entry", 1, func(i FieldOrMethod) error { _, err := i.Name(cp); return err }, classfile.ErrPoolTypeMismatch},
		{"signature of class entry", 2, func(i FieldOrMethod) error { _, err := i.Signature(cp); return err }, classfile.ErrPoolTypeMismatch},
		{"class name of name and type", 5, func(i FieldOrMethod) error { _, err := i.ClassName(cp); return err }, classfile.ErrPoolTypeMismatch},
		{"reference type of index 0", 0, func(i FieldOrMethod) error { _, err := i.ReferenceType(cp); return err }, classfile.ErrInvalidIndex},
		{"resolve past end", 40, func(i FieldOrMethod) error { _, err := i.Resolve(cp); return err }, classfile.ErrInvalidIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(FieldOrMethod{Opcode: GetStatic, Index: tt.index})
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolveBrokenChain(t *testing.T) {
	// Fieldref whose NameAndType slot holds a Utf8 entry.
	cp := poolOnly{classfile.NewConstantPool(
		&classfile.ConstantUtf8{Value: "Foo"},
		&classfile.ConstantClass{NameIndex: 1},
		&classfile.ConstantFieldref{ClassIndex: 2, NameAndTypeIndex: 1},
		&classfile.ConstantFieldref{ClassIndex: 1, NameAndTypeIndex: 1},
	)}

	_, err := FieldOrMethod{Opcode: GetField, Index: 3}.Name(cp)
	require.ErrorIs(t, err, classfile.ErrPoolTypeMismatch)

	_, err = FieldOrMethod{Opcode: GetField, Index: 4}.ClassName(cp)
	require.ErrorIs(t, err, classfile.ErrPoolTypeMismatch)
}

func TestNewFieldOrMethodRejectsOtherOpcodes(t *testing.T) {
	_, err := NewFieldOrMethod(Opcode(0x00), 1)
	require.Error(t, err)
	assert.Equal(t, "opcode(0x00)", Opcode(0x00).String())
	assert.True(t, PutStatic.IsFieldAccess())
	assert.False(t, InvokeStatic.IsFieldAccess())
}
