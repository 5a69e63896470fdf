// Package files loads stylesheet sources and writes conversion results.
package files

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"remfallback/archive"
)

// Source is a single loaded stylesheet.
type Source struct {
	// Name is file path, or archive path and entry name joined with "/".
	Name string
	Data []byte
}

// Sources is the result of loading: stylesheets in the order they are going
// to be merged and paths which were not found.
type Sources struct {
	Files   []Source
	Missing []string
}

// Merged joins all loaded stylesheets with a newline.
func (s *Sources) Merged() []byte {
	parts := make([][]byte, 0, len(s.Files))
	for _, f := range s.Files {
		parts = append(parts, f.Data)
	}
	return bytes.Join(parts, []byte("\n"))
}

// Names returns names of loaded stylesheets in merge order.
func (s *Sources) Names() []string {
	names := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		names = append(names, f.Name)
	}
	return names
}

type Reader struct {
	log *zap.Logger
}

func NewReader(log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{log: log.Named("files")}
}

// Load expands source patterns and reads matching stylesheets. Every pattern
// is either a path, a shell glob or a path inside zip archive
// ("themes.zip/css/*.css"). Glob results are ordered naturally, archive
// entries are kept in archive order. Patterns matching nothing are reported
// as missing and logged, this is not an error. The same file matched by
// several patterns is loaded once.
func (r *Reader) Load(ctx context.Context, patterns []string) (*Sources, error) {
	res := &Sources{}
	seen := make(map[string]struct{})

	add := func(name string, data []byte) error {
		if _, ok := seen[name]; ok {
			r.log.Debug("Skipping duplicate source", zap.String("file", name))
			return nil
		}
		seen[name] = struct{}{}
		decoded, err := decode(data)
		if err != nil {
			return fmt.Errorf("unable to decode source (%s): %w", name, err)
		}
		res.Files = append(res.Files, Source{Name: name, Data: decoded})
		r.log.Debug("Source loaded", zap.String("file", name), zap.Int("size", len(decoded)))
		return nil
	}

	for _, pattern := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := r.expand(ctx, pattern, add)
		if err != nil {
			return nil, err
		}
		if found == 0 {
			r.log.Warn("Source file not found", zap.String("path", pattern))
			res.Missing = append(res.Missing, pattern)
		}
	}
	return res, nil
}

func (r *Reader) expand(ctx context.Context, pattern string, add func(string, []byte) error) (int, error) {
	if arc, inner, ok := archive.Split(pattern); ok {
		return r.expandArchive(ctx, arc, inner, add)
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0, fmt.Errorf("bad source pattern (%s): %w", pattern, err)
	}
	sort.Sort(natural.StringSlice(matches))

	count := 0
	for _, name := range matches {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		fi, err := os.Stat(name)
		if err != nil {
			r.log.Warn("Skipping path", zap.String("path", name), zap.Error(err))
			continue
		}
		if !fi.Mode().IsRegular() {
			r.log.Debug("Skipping path, not a regular file", zap.String("path", name))
			continue
		}
		data, err := os.ReadFile(name)
		if err != nil {
			return count, fmt.Errorf("unable to read source: %w", err)
		}
		if err := add(name, data); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// expandArchive reads archive entries matching inner pattern. When no pattern
// is given all stylesheets in archive are used.
func (r *Reader) expandArchive(ctx context.Context, arc, inner string, add func(string, []byte) error) (int, error) {
	match := archive.Glob(inner)
	if inner == "" {
		match = func(name string) bool {
			return strings.EqualFold(filepath.Ext(name), ".css")
		}
	}

	count := 0
	err := archive.Walk(arc, match, func(arc string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("unable to open file in archive (%s): %w", f.Name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("unable to read file in archive (%s): %w", f.Name, err)
		}
		if err := add(filepath.ToSlash(arc)+"/"+f.Name, data); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("unable to process archive (%s): %w", arc, err)
	}
	return count, nil
}

// decode converts source text to UTF-8 honoring byte order mark. Text without
// BOM is expected to be UTF-8 already. BOM is removed.
func decode(data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, err
	}
	return out, nil
}
