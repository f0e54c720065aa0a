package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samber/mo"
)

// Source provides validated configurations to the reload control operation.
// Fetch returns either a configuration that passed Validate or an error whose
// message explains why not.
type Source interface {
	Fetch(ctx context.Context) mo.Result[*Config]
}

// FileSource reads and validates a configuration file on every Fetch.
type FileSource struct {
	path string
}

// NewFileSource creates a Source backed by the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the file path the source reads.
func (s *FileSource) Path() string {
	return s.path
}

// Fetch loads and validates the file.
func (s *FileSource) Fetch(ctx context.Context) mo.Result[*Config] {
	if err := ctx.Err(); err != nil {
		return mo.Err[*Config](err)
	}
	if s.path == "" {
		return mo.Err[*Config](ErrNoConfigFile)
	}
	return mo.TupleToResult(LoadValidated(s.path))
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) mo.Result[*Config]

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context) mo.Result[*Config] {
	return f(ctx)
}

// DefaultFileNames are tried in order when no path is given.
var DefaultFileNames = []string{"config.toml", "config.yaml", "config.yml"}

// FindConfigFile searches the working directory, then ~/.config/hotswap,
// for one of DefaultFileNames. It returns the first default name when
// nothing is found so the subsequent open reports a useful error.
func FindConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return findConfigIn(".", home)
}

func findConfigIn(workDir, home string) string {
	dirs := []string{workDir}
	if home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", "hotswap"))
	}

	for _, dir := range dirs {
		for _, name := range DefaultFileNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				if dir == "." {
					return name
				}
				return p
			}
		}
	}

	return DefaultFileNames[0]
}

var (
	_ Source = (*FileSource)(nil)
	_ Source = SourceFunc(nil)
)
