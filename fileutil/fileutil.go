// Package fileutil has small filesystem helpers shared by the command
// line tools.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extensions used by Ogg physical streams. Tag text files are refused
// these extensions so a swapped argument cannot clobber an audio file.
var oggExtensions = map[string]struct{}{
	".ogg": {}, ".ogv": {}, ".oga": {}, ".ogx": {}, ".ogm": {}, ".spx": {}, ".opus": {},
}

func LooksLikeOgg(path string) bool {
	_, ok := oggExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// WriteAtomic writes a file via an exclusively created sibling temp file
// and rename, so readers never observe a partial write and failures
// leave any existing file alone.
func WriteAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	tmp, err := os.CreateTemp(dir, stem+"-*"+ext)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	committed = true
	return nil
}
