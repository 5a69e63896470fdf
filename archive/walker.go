// Package archive builds Walk abstraction on top of "archive/zip" and helps
// to recognize source paths pointing inside zip archives.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to Walk
// The file argument is the zip.File structure for file in archive which satisfies
// match condition. If an error is returned, processing stops.
type WalkFunc func(archive string, file *zip.File) error

// MatchFunc reports whether archive entry should be visited.
type MatchFunc func(name string) bool

// Walk walks all files in the archive which satisfy match condition, in
// archive order, calling walkFn for each item. Archives with path traversal
// components ("..") or absolute entry names are rejected to prevent Zip Slip
// attacks.
func Walk(archive string, match MatchFunc, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || (match != nil && !match(name)) {
			continue
		}
		if err := walkFn(archive, f); err != nil {
			return err
		}
	}
	return nil
}

// Glob returns MatchFunc selecting entries by shell pattern (path.Match
// syntax). Empty pattern or pattern ending with "/" selects every file under
// that directory. Malformed pattern matches nothing.
func Glob(pattern string) MatchFunc {
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
	if pattern == "" || strings.HasSuffix(pattern, "/") {
		return func(name string) bool {
			return strings.HasPrefix(name, pattern)
		}
	}
	return func(name string) bool {
		ok, err := path.Match(pattern, name)
		return err == nil && ok
	}
}

// IsArchive checks file signature to see if it is a zip archive.
func IsArchive(fname string) (bool, error) {
	f, err := os.Open(fname)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// filetype needs at most 262 bytes to recognize anything it knows
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}

// Split looks for zip archive among leading components of src. When found
// it returns path to the archive and the remainder of src (slash separated)
// to be used as pattern inside it.
func Split(src string) (archive, inner string, ok bool) {
	src = filepath.Clean(src)
	for head := src; ; {
		if fi, err := os.Stat(head); err == nil {
			if !fi.Mode().IsRegular() {
				// existing directory means no archive on this path
				return "", "", false
			}
			if arc, err := IsArchive(head); err != nil || !arc {
				return "", "", false
			}
			inner = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			return head, filepath.ToSlash(inner), true
		}
		// does not exists - probably path in archive
		parent := filepath.Dir(head)
		if parent == head {
			return "", "", false
		}
		head = parent
	}
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
