// Package hexfile loads Intel HEX files from disk for the converter.
package hexfile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/anupcshan/hexbin/intelhex"
	"github.com/pkg/errors"
)

const Extension = ".hex"

// Validate checks that path names a .hex file, without touching the disk.
func Validate(path string) error {
	if path == "" {
		return errors.Wrap(intelhex.ErrInvalidInput, "empty input path")
	}
	if !strings.EqualFold(filepath.Ext(path), Extension) {
		return errors.Wrapf(intelhex.ErrInvalidInput, "%s: expected a %s file", path, Extension)
	}
	return nil
}

// Load validates path and returns the whole file as text.
func Load(path string) (string, error) {
	if err := Validate(path); err != nil {
		return "", err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", path)
	}
	return string(b), nil
}

// OutputPath derives an output file name from an input: foo.hex -> foo<ext>.
func OutputPath(input, ext string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}
