package classpath

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/daimatz/classkit/pkg/classfile"
)

var jmodMagic = []byte{'J', 'M', 0x01, 0x00}

// JmodLoader loads classes from a JDK jmod file. The archive is read into
// memory on first use.
type JmodLoader struct {
	JmodPath string
	Options  classfile.Options
	Cache    map[string]*classfile.ClassFile

	entries map[string]*zip.File
}

// NewJmodLoader creates a JmodLoader for jmodPath.
func NewJmodLoader(jmodPath string, opts classfile.Options) *JmodLoader {
	return &JmodLoader{
		JmodPath: jmodPath,
		Options:  opts,
		Cache:    make(map[string]*classfile.ClassFile),
	}
}

func (l *JmodLoader) ensureEntries() error {
	if l.entries != nil {
		return nil
	}

	data, err := os.ReadFile(l.JmodPath)
	if err != nil {
		return fmt.Errorf("jmod: reading %s: %w", l.JmodPath, err)
	}
	if !bytes.HasPrefix(data, jmodMagic) {
		return fmt.Errorf("jmod: %s: missing JM header", l.JmodPath)
	}

	zipData := data[len(jmodMagic):]
	zr, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return fmt.Errorf("jmod: opening zip: %w", err)
	}
	l.entries = make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		l.entries[f.Name] = f
	}
	return nil
}

func (l *JmodLoader) Load(name string) (*classfile.ClassFile, error) {
	if cf, ok := l.Cache[name]; ok {
		return cf, nil
	}
	if err := l.ensureEntries(); err != nil {
		return nil, err
	}

	target := "classes/" + name + ".class"
	file, ok := l.entries[target]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrClassNotFound, name, l.JmodPath)
	}
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("jmod: opening %s: %w", target, err)
	}
	defer rc.Close()

	cf, warnings, err := classfile.ParseWithOptions(rc, l.Options)
	if err != nil {
		return nil, fmt.Errorf("jmod: parsing %s: %w", name, err)
	}
	logWarnings(l.Options.Logger, name, warnings)
	l.Cache[name] = cf
	return cf, nil
}

// Classes returns the internal names of every class in the archive.
func (l *JmodLoader) Classes() ([]string, error) {
	if err := l.ensureEntries(); err != nil {
		return nil, err
	}
	var names []string
	for entry := range l.entries {
		name, ok := strings.CutPrefix(entry, "classes/")
		if !ok {
			continue
		}
		if name, ok = strings.CutSuffix(name, ".class"); ok && name != "module-info" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// FindJavaBaseJmod locates java.base.jmod from JAVA_BASE_JMOD, then
// JAVA_HOME, then the usual Linux JDK install paths. It returns "" when
// none exists.
func FindJavaBaseJmod() string {
	if env := os.Getenv("JAVA_BASE_JMOD"); env != "" {
		return env
	}
	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		p := filepath.Join(javaHome, "jmods", "java.base.jmod")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	matches, _ := filepath.Glob("/usr/lib/jvm/java-*-openjdk-*/jmods/java.base.jmod")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}
