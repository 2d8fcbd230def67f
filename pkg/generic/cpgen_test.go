package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/classkit/pkg/classfile"
)

func TestConstantPoolGenDeduplicates(t *testing.T) {
	cpg := NewConstantPoolGen()

	a, err := cpg.AddUtf8("hello")
	require.NoError(t, err)
	b, err := cpg.AddUtf8("hello")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c1, err := cpg.AddClass("java.lang.String")
	require.NoError(t, err)
	c2, err := cpg.AddClass("java/lang/String")
	require.NoError(t, err)
	assert.Equal(t, c1, c2)

	name, err := cpg.ConstantPool().GetClassName(c1)
	require.NoError(t, err)
	assert.Equal(t, "java/lang/String", name)

	f1, err := cpg.AddFieldref("Foo", "x", "I")
	require.NoError(t, err)
	f2, err := cpg.AddFieldref("Foo", "x", "I")
	require.NoError(t, err)
	assert.Equal(t, f1, f2)

	m, err := cpg.AddMethodref("Foo", "x", "I")
	require.NoError(t, err)
	assert.NotEqual(t, f1, m, "field and method refs are distinct entries")

	size := cpg.Size()
	_, err = cpg.AddNameAndType("x", "I")
	require.NoError(t, err)
	assert.Equal(t, size, cpg.Size())
}

func TestConstantPoolGenWideEntries(t *testing.T) {
	cpg := NewConstantPoolGen()

	l, err := cpg.AddLong(7)
	require.NoError(t, err)
	d, err := cpg.AddDouble(0.5)
	require.NoError(t, err)
	i, err := cpg.AddInteger(7)
	require.NoError(t, err)

	assert.Equal(t, uint16(1), l)
	assert.Equal(t, uint16(3), d)
	assert.Equal(t, uint16(5), i)
	assert.Equal(t, 6, cpg.Size())

	again, err := cpg.AddLong(7)
	require.NoError(t, err)
	assert.Equal(t, l, again)
}

func TestConstantPoolGenFromExisting(t *testing.T) {
	pool := classfile.NewConstantPool(
		&classfile.ConstantUtf8{Value: "Foo"},
		&classfile.ConstantClass{NameIndex: 1},
		&classfile.ConstantUtf8{Value: "x"},
		&classfile.ConstantUtf8{Value: "I"},
		&classfile.ConstantNameAndType{NameIndex: 3, DescriptorIndex: 4},
		&classfile.ConstantFieldref{ClassIndex: 2, NameAndTypeIndex: 5},
	)
	cpg := NewConstantPoolGenFrom(pool)

	idx, err := cpg.AddFieldref("Foo", "x", "I")
	require.NoError(t, err)
	assert.Equal(t, uint16(6), idx)
	assert.Equal(t, 7, cpg.Size())

	got, ok := cpg.LookupClass("Foo")
	assert.True(t, ok)
	assert.Equal(t, uint16(2), got)

	_, ok = cpg.LookupUtf8("missing")
	assert.False(t, ok)

	s, err := cpg.AddString("x")
	require.NoError(t, err)
	entry, err := cpg.GetConstant(s)
	require.NoError(t, err)
	assert.Equal(t, &classfile.ConstantString{StringIndex: 3}, entry)
}

func TestAddReferenceType(t *testing.T) {
	cpg := NewConstantPoolGen()

	arr, err := NewArrayType(NewObjectType("java.lang.String"), 1)
	require.NoError(t, err)
	idx, err := cpg.AddReferenceType(arr)
	require.NoError(t, err)

	name, err := cpg.ConstantPool().GetClassName(idx)
	require.NoError(t, err)
	assert.Equal(t, "[Ljava/lang/String;", name)

	idx, err = cpg.AddReferenceType(NewObjectType("java.util.List"))
	require.NoError(t, err)
	name, err = cpg.ConstantPool().GetClassName(idx)
	require.NoError(t, err)
	assert.Equal(t, "java/util/List", name)
}
