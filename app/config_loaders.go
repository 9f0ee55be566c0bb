package prism

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type ConfigLoader interface {
	Load() (*Config, error)
}

// FileConfigLoader loads the configuration with LoadConfig after exporting the
// variables found in EnvFiles. Missing env files are ignored; variables already
// set in the environment win over the files.
type FileConfigLoader struct {
	Path     string
	Flags    *pflag.FlagSet
	EnvFiles []string
}

func (l *FileConfigLoader) Load() (*Config, error) {
	files := l.EnvFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return LoadConfig(l.Path, l.Flags)
}

// DefaultConfigLoader returns DefaultConfig without reading anything.
type DefaultConfigLoader struct {
}

func (l *DefaultConfigLoader) Load() (*Config, error) {
	return DefaultConfig(), nil
}
