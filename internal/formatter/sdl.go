package formatter

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// WriteSDL atomically replaces path with sdl, creating parent directories
func WriteSDL(path, sdl string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp schema file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.WriteString(sdl); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to write schema")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to write schema")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrap(err, "failed to set schema permissions")
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "failed to replace %s", path)
}
