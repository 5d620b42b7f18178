package rewrite

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// File applies the action to the file at path. The result replaces the
// file in place, or lands at outPath when that is non-empty. The rewrite
// goes to an exclusively created temp file in the destination directory
// so the final rename stays on one filesystem; any error or cancellation
// removes the temp file and leaves the original untouched. A dry run
// reports the outcome without writing anything. When the headers come
// out unchanged an in-place rewrite is abandoned, while a rewrite to a
// different path degrades to a byte copy of the original.
func File(ctx context.Context, action Action, path, outPath string, dryRun bool) (*Outcome, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	if dryRun {
		return Stream(ctx, action, in, io.Discard, true)
	}

	samePath := outPath == "" || outPath == path
	if samePath {
		outPath = path
	}

	tmp, err := siblingTemp(outPath)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	outcome, err := Stream(ctx, action, in, bw, true)
	if err != nil {
		return nil, err
	}

	switch {
	case !outcome.Changed && samePath:
		return outcome, nil
	case !outcome.Changed:
		// Copy the original bytes rather than re-framed pages.
		if err := tmp.Truncate(0); err != nil {
			return nil, err
		}
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		if _, err := in.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		bw.Reset(tmp)
		if _, err := io.Copy(bw, in); err != nil {
			return nil, err
		}
	}

	if err := bw.Flush(); err != nil {
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	// Close the source before renaming over it; some platforms refuse to
	// replace an open file.
	if err := in.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return nil, fmt.Errorf("replace %s: %w", outPath, err)
	}
	committed = true
	return outcome, nil
}

func siblingTemp(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return os.CreateTemp(dir, stem+"-oggain-*"+ext)
}

// ReadFileHeaders parses the headers of path without rewriting.
func ReadFileHeaders(path string) (*HeaderPair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadHeaders(f)
}
