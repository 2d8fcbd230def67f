// Package classpath locates and parses class files by internal name
// ("java/lang/Object") from directories and JDK jmod archives.
package classpath

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/daimatz/classkit/pkg/classfile"
)

// ErrClassNotFound is returned when no loader in a chain has the class.
var ErrClassNotFound = errors.New("classpath: class not found")

// Loader loads class files by internal name.
type Loader interface {
	Load(name string) (*classfile.ClassFile, error)
}

// DirLoader loads classes from a directory tree, delegating to Parent
// first when one is set.
type DirLoader struct {
	Dir     string
	Parent  Loader
	Options classfile.Options
	Cache   map[string]*classfile.ClassFile
}

// NewDirLoader creates a DirLoader rooted at dir. parent may be nil.
func NewDirLoader(dir string, parent Loader, opts classfile.Options) *DirLoader {
	return &DirLoader{
		Dir:     dir,
		Parent:  parent,
		Options: opts,
		Cache:   make(map[string]*classfile.ClassFile),
	}
}

func (l *DirLoader) Load(name string) (*classfile.ClassFile, error) {
	if cf, ok := l.Cache[name]; ok {
		return cf, nil
	}
	if l.Parent != nil {
		cf, err := l.Parent.Load(name)
		if err == nil {
			return cf, nil
		}
		if !errors.Is(err, ErrClassNotFound) {
			return nil, err
		}
	}
	path := filepath.Join(l.Dir, filepath.FromSlash(name)+".class")
	cf, warnings, err := classfile.ParseFile(path, l.Options)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s in %s", ErrClassNotFound, name, l.Dir)
		}
		return nil, fmt.Errorf("dir: parsing %s: %w", name, err)
	}
	logWarnings(l.Options.Logger, name, warnings)
	l.Cache[name] = cf
	return cf, nil
}

func logWarnings(logger *slog.Logger, name string, warnings []error) {
	if len(warnings) == 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("class loaded with format warnings", "class", name, "count", len(warnings))
}

// Chain tries each loader in order and returns the first class found.
type Chain []Loader

func (c Chain) Load(name string) (*classfile.ClassFile, error) {
	for _, l := range c {
		cf, err := l.Load(name)
		if err == nil {
			return cf, nil
		}
		if !errors.Is(err, ErrClassNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
}
