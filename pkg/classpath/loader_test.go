package classpath

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/classkit/pkg/classfile"
	"github.com/daimatz/classkit/pkg/generic"
)

// classBytes returns a minimal class file for the internal name.
func classBytes(t *testing.T, name string) []byte {
	t.Helper()
	super := "java/lang/Object"
	if name == super {
		super = ""
	}
	cf, err := generic.NewClassGen(name, super, "", classfile.AccPublic, nil, nil).JavaClass()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, classfile.Write(&buf, cf))
	return buf.Bytes()
}

func writeClassDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		path := filepath.Join(dir, filepath.FromSlash(name)+".class")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, classBytes(t, name), 0o644))
	}
	return dir
}

func writeJmod(t *testing.T, names ...string) string {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(jmodMagic)
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create("classes/" + name + ".class")
		require.NoError(t, err)
		_, err = w.Write(classBytes(t, name))
		require.NoError(t, err)
	}
	w, err := zw.Create("classes/module-info.class")
	require.NoError(t, err)
	_, err = w.Write([]byte{0xca, 0xfe})
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "java.base.jmod")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func className(t *testing.T, cf *classfile.ClassFile) string {
	t.Helper()
	name, err := cf.ClassName()
	require.NoError(t, err)
	return name
}

func TestJmodLoader(t *testing.T) {
	path := writeJmod(t, "java/lang/Object", "java/lang/Integer")
	l := NewJmodLoader(path, classfile.Options{})

	t.Run("load", func(t *testing.T) {
		cf, err := l.Load("java/lang/Integer")
		require.NoError(t, err)
		assert.Equal(t, "java/lang/Integer", className(t, cf))
	})

	t.Run("cache", func(t *testing.T) {
		cf1, err := l.Load("java/lang/Object")
		require.NoError(t, err)
		cf2, err := l.Load("java/lang/Object")
		require.NoError(t, err)
		assert.Same(t, cf1, cf2)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := l.Load("com/nonexistent/Foo")
		require.ErrorIs(t, err, ErrClassNotFound)
	})

	t.Run("classes", func(t *testing.T) {
		names, err := l.Classes()
		require.NoError(t, err)
		assert.Equal(t, []string{"java/lang/Integer", "java/lang/Object"}, names)
	})
}

func TestJmodLoaderBadArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jmod")
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04"), 0o644))

	_, err := NewJmodLoader(path, classfile.Options{}).Load("java/lang/Object")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrClassNotFound)
}

func TestDirLoader(t *testing.T) {
	jmod := NewJmodLoader(writeJmod(t, "java/lang/Object"), classfile.Options{})
	dir := writeClassDir(t, "Hello", "com/example/Util")
	l := NewDirLoader(dir, jmod, classfile.Options{})

	tests := []struct {
		name    string
		class   string
		wantErr error
	}{
		{"top level", "Hello", nil},
		{"package", "com/example/Util", nil},
		{"delegates to parent", "java/lang/Object", nil},
		{"missing", "NonExistentClass", ErrClassNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cf, err := l.Load(tt.class)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.class, className(t, cf))
		})
	}

	_, cached := l.Cache["Hello"]
	assert.True(t, cached)
	_, cached = l.Cache["java/lang/Object"]
	assert.False(t, cached, "parent classes are cached by the parent")
}

func TestDirLoaderParseError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Broken.class"), []byte{0xde, 0xad, 0xbe, 0xef}, 0o644))

	_, err := NewDirLoader(dir, nil, classfile.Options{}).Load("Broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrClassNotFound)
}

func TestChain(t *testing.T) {
	first := NewDirLoader(writeClassDir(t, "A"), nil, classfile.Options{})
	second := NewDirLoader(writeClassDir(t, "A", "B"), nil, classfile.Options{})
	chain := Chain{first, second}

	a, err := chain.Load("A")
	require.NoError(t, err)
	assert.Same(t, first.Cache["A"], a)

	b, err := chain.Load("B")
	require.NoError(t, err)
	assert.Equal(t, "B", className(t, b))

	_, err = chain.Load("C")
	require.ErrorIs(t, err, ErrClassNotFound)
}

func TestFindJavaBaseJmod(t *testing.T) {
	t.Setenv("JAVA_BASE_JMOD", "/opt/jdk/jmods/java.base.jmod")
	assert.Equal(t, "/opt/jdk/jmods/java.base.jmod", FindJavaBaseJmod())

	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "jmods"), 0o755))
	want := filepath.Join(home, "jmods", "java.base.jmod")
	require.NoError(t, os.WriteFile(want, nil, 0o644))

	t.Setenv("JAVA_BASE_JMOD", "")
	t.Setenv("JAVA_HOME", home)
	assert.Equal(t, want, FindJavaBaseJmod())
}
