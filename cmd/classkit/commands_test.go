package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/classkit/pkg/classfile"
	"github.com/daimatz/classkit/pkg/generic"
)

// writeSampleClass writes com/example/Sample.class under dir and returns
// its path. The class references a field, a method and an array clone.
func writeSampleClass(t *testing.T, dir string) string {
	t.Helper()
	color.NoColor = true

	cg := generic.NewClassGen("com.example.Sample", "java.lang.Object", "Sample.java", classfile.AccPublic, nil, nil)
	cpg := cg.ConstantPool()

	_, err := cpg.AddFieldref("com.example.Sample", "count", "I")
	require.NoError(t, err)
	_, err = cpg.AddMethodref("java.io.PrintStream", "println", "(Ljava/lang/String;)V")
	require.NoError(t, err)
	_, err = cpg.AddMethodref("[I", "clone", "()Ljava/lang/Object;")
	require.NoError(t, err)

	f, err := generic.NewFieldGen(classfile.AccPrivate, generic.Int, "count", cpg)
	require.NoError(t, err)
	require.NoError(t, cg.AddField(f))

	m, err := generic.NewMethodGen(classfile.AccPublic, generic.Void, nil, nil, "run", cg.ClassName(), cpg)
	require.NoError(t, err)
	codeName, err := cpg.AddUtf8(classfile.NameCode)
	require.NoError(t, err)
	lntName, err := cpg.AddUtf8(classfile.NameLineNumberTable)
	require.NoError(t, err)
	code := classfile.NewCode(codeName, 0, 1, []byte{0xb1}, cpg.ConstantPool())
	code.Attributes = []classfile.Attribute{
		classfile.NewLineNumberTable(lntName, []classfile.LineNumber{{StartPC: 0, LineNumber: 7}}, cpg.ConstantPool()),
	}
	m.AddAttribute(code)
	m.AddException("java.io.IOException")
	require.NoError(t, cg.AddMethod(m))

	cf, err := cg.JavaClass()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, classfile.Write(&buf, cf))

	path := filepath.Join(dir, "com", "example", "Sample.class")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestAttrsCommand(t *testing.T) {
	path := writeSampleClass(t, t.TempDir())

	var out bytes.Buffer
	require.NoError(t, runAttrs(&out, []string{path}))

	output := out.String()
	for _, want := range []string{
		"class com/example/Sample",
		"SourceFile(Sample.java)",
		"method run()V",
		"Code(max_stack = 0, max_locals = 1, code_length = 1)",
		"    LineNumberTable",
		"line 7: pc 0",
		"Exceptions(java.io.IOException)",
	} {
		assert.Contains(t, output, want)
	}
	assert.NotContains(t, output, "warning:")
}

func TestRefsCommand(t *testing.T) {
	path := writeSampleClass(t, t.TempDir())

	var out bytes.Buffer
	require.NoError(t, runRefs(&out, []string{path}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Fieldref com.example.Sample.count:I -> int")
	assert.Contains(t, lines[1], "Methodref java.io.PrintStream.println:(Ljava/lang/String;)V -> void")
	assert.Contains(t, lines[2], "Methodref int[].clone:()Ljava/lang/Object; -> java.lang.Object")
}

func TestInfoCommand(t *testing.T) {
	dir := t.TempDir()
	writeSampleClass(t, dir)
	t.Setenv("JAVA_BASE_JMOD", filepath.Join(dir, "missing.jmod"))

	cfgFile := filepath.Join(dir, "classkit.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("classpath = ["+`"`+filepath.ToSlash(dir)+`"`+"]\n"), 0o644))
	configPath = cfgFile
	t.Cleanup(func() { configPath = "" })

	var out bytes.Buffer
	require.NoError(t, runInfo(&out, []string{"com.example.Sample"}))
	assert.Contains(t, out.String(), "com/example/Sample")
	assert.Contains(t, out.String(), "Super: java/lang/Object")
	assert.Contains(t, out.String(), "Methods: 1")

	err := runInfo(&out, []string{"com.example.Missing"})
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing default file", func(t *testing.T) {
		cfg, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, config{}, cfg)
	})

	t.Run("explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "classkit.toml")
		require.NoError(t, os.WriteFile(path, []byte("strict = true\njmod = \"/x/java.base.jmod\"\nclasspath = [\"a\", \"b\"]\n"), 0o644))

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, config{Strict: true, ClassPath: []string{"a", "b"}, Jmod: "/x/java.base.jmod"}, cfg)
		assert.True(t, parseOptions(cfg).Strict)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		require.Error(t, err)
	})

	t.Run("bad toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "classkit.toml")
		require.NoError(t, os.WriteFile(path, []byte("strict = [\n"), 0o644))
		_, err := loadConfig(path)
		require.Error(t, err)
	})
}
