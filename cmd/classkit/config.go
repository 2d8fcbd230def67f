package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/daimatz/classkit/pkg/classfile"
	"github.com/daimatz/classkit/pkg/classpath"
)

const defaultConfigName = "classkit.toml"

// config is the optional classkit.toml file.
//
//	strict = true
//	classpath = ["build/classes", "lib"]
//	jmod = "/usr/lib/jvm/java-21-openjdk/jmods/java.base.jmod"
type config struct {
	Strict    bool     `toml:"strict"`
	ClassPath []string `toml:"classpath"`
	Jmod      string   `toml:"jmod"`
}

// loadConfig reads path, or classkit.toml in the working directory when
// path is empty. A missing default file yields the zero config.
func loadConfig(path string) (config, error) {
	var cfg config
	explicit := path != ""
	if !explicit {
		path = defaultConfigName
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return config{}, nil
		}
		return config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return cfg, nil
}

// loader builds the class path: the jmod first, then each directory in
// order.
func (c config) loader(opts classfile.Options) classpath.Loader {
	var chain classpath.Chain
	jmod := c.Jmod
	if jmod == "" {
		jmod = classpath.FindJavaBaseJmod()
	}
	if jmod != "" {
		if _, err := os.Stat(jmod); err == nil {
			chain = append(chain, classpath.NewJmodLoader(jmod, opts))
		}
	}
	dirs := c.ClassPath
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	for _, dir := range dirs {
		chain = append(chain, classpath.NewDirLoader(dir, nil, opts))
	}
	return chain
}
