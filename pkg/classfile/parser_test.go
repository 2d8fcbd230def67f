package classfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleClass builds a class Foo with one field and one method, using every
// attribute kind somewhere.
func sampleClass(t *testing.T) *ClassFile {
	t.Helper()
	cp := attrPool()
	add := func(e ConstantPoolEntry) uint16 {
		idx, err := cp.Add(e)
		require.NoError(t, err)
		return idx
	}
	objectName := add(&ConstantUtf8{Value: "java/lang/Object"})
	object := add(&ConstantClass{NameIndex: objectName})
	mainName := add(&ConstantUtf8{Value: "main"})
	mainDesc := add(&ConstantUtf8{Value: "([Ljava/lang/String;)V"})

	code := sampleCode(cp)
	return &ClassFile{
		MinorVersion: 0,
		MajorVersion: 52,
		ConstantPool: cp,
		AccessFlags:  AccPublic | AccSuper,
		ThisClass:    2,
		SuperClass:   object,
		Fields: []FieldInfo{{
			AccessFlags:     AccStatic | AccFinal,
			NameIndex:       3,
			DescriptorIndex: 4,
			Name:            "x",
			Descriptor:      "I",
			Attributes: []Attribute{
				NewConstantValue(idxConstantValue, idxInt42, cp),
				NewSynthetic(idxSynthetic, nil, cp),
			},
		}},
		Methods: []MethodInfo{{
			AccessFlags:     AccPublic | AccStatic,
			NameIndex:       mainName,
			DescriptorIndex: mainDesc,
			Name:            "main",
			Descriptor:      "([Ljava/lang/String;)V",
			Attributes: []Attribute{
				code,
				NewExceptions(idxExceptions, []uint16{idxIOException}, cp),
				NewDeprecated(idxDeprecated, nil, cp),
			},
			Code: code,
		}},
		Attributes: []Attribute{
			NewSourceFile(idxSourceFile, idxFooJava, cp),
			NewSignature(idxSignature, idxListSig, cp),
			NewBootstrapMethods(idxBootstrapMethods, []BootstrapMethod{{MethodRef: 6}}, cp),
			NewUnknown(idxCustom, "Custom", []byte{7, 7}, cp),
		},
	}
}

func TestWriteParseRoundTrip(t *testing.T) {
	orig := sampleClass(t)

	var first bytes.Buffer
	require.NoError(t, Write(&first, orig))

	cf, err := Parse(bytes.NewReader(first.Bytes()))
	require.NoError(t, err)

	name, err := cf.ClassName()
	require.NoError(t, err)
	assert.Equal(t, "Foo", name)
	assert.Equal(t, "java/lang/Object", cf.SuperClassName())
	assert.Equal(t, uint16(52), cf.MajorVersion)

	field := cf.FindField("x")
	require.NotNil(t, field)
	require.Len(t, field.Attributes, 2)
	assert.IsType(t, &ConstantValue{}, field.Attributes[0])
	assert.IsType(t, &Synthetic{}, field.Attributes[1])

	main := cf.FindMethod("main", "([Ljava/lang/String;)V")
	require.NotNil(t, main)
	require.NotNil(t, main.Code)
	assert.Same(t, main.Attributes[0], main.Code)
	assert.Equal(t, []byte{0x2a, 0xb1}, main.Code.Code)
	require.Len(t, main.Code.Attributes, 1)
	assert.IsType(t, &LineNumberTable{}, main.Code.Attributes[0])
	assert.Equal(t, main, cf.FindMethodByName("main"))

	require.Len(t, cf.Attributes, 4)
	unknown, ok := cf.Attributes[3].(*Unknown)
	require.True(t, ok)
	assert.Equal(t, []byte{7, 7}, unknown.Bytes)

	var second bytes.Buffer
	require.NoError(t, Write(&second, cf))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestParseWarnings(t *testing.T) {
	cf := sampleClass(t)
	cf.Fields[0].Attributes[1].(*Synthetic).Bytes = []byte{0xff}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cf))

	path := filepath.Join(t.TempDir(), "Foo.class")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	t.Run("tolerant", func(t *testing.T) {
		parsed, warnings, err := ParseFile(path, Options{})
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.ErrorIs(t, warnings[0], ErrUnexpectedPayload)
		assert.Equal(t, []byte{0xff}, parsed.Fields[0].Attributes[1].(*Synthetic).Bytes)
	})

	t.Run("strict", func(t *testing.T) {
		_, _, err := ParseFile(path, Options{Strict: true})
		require.ErrorIs(t, err, ErrUnexpectedPayload)
	})
}

func TestParseTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleClass(t)))
	data := buf.Bytes()

	_, err := Parse(bytes.NewReader(data[:len(data)-3]))
	require.Error(t, err)
}

func TestParseInvalidMagic(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "invalid*.class")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	tmpFile.Write([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	tmpFile.Close()

	f, err := os.Open(tmpFile.Name())
	if err != nil {
		t.Fatalf("failed to open temp file: %v", err)
	}
	defer f.Close()

	_, err = Parse(f)
	if err == nil {
		t.Fatal("expected error for invalid magic number, got nil")
	}
}
