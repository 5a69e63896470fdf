package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Stdout is destination name which sends result to standard output.
const Stdout = "-"

// ErrDestinationExists is returned when destination file is present and
// overwriting was not allowed.
var ErrDestinationExists = errors.New("destination already exists")

type Writer struct {
	log       *zap.Logger
	overwrite bool
	stdout    io.Writer
}

// NewWriter returns writer putting results into files. Results for empty or
// "-" destination go to stdout.
func NewWriter(log *zap.Logger, stdout io.Writer, overwrite bool) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	return &Writer{log: log.Named("files"), overwrite: overwrite, stdout: stdout}
}

// IsStdout tells if destination means standard output.
func IsStdout(dest string) bool {
	return dest == "" || dest == Stdout
}

// Write renders content into destination creating directories as needed.
func (w *Writer) Write(dest string, content io.WriterTo) (err error) {
	if IsStdout(dest) {
		if _, err := content.WriteTo(w.stdout); err != nil {
			return fmt.Errorf("unable to write result to STDOUT: %w", err)
		}
		return nil
	}

	if _, err := os.Stat(dest); err == nil {
		if !w.overwrite {
			return fmt.Errorf("%w: %s", ErrDestinationExists, dest)
		}
		w.log.Debug("Overwriting existing file", zap.String("file", dest))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("unable to create destination file: %w", err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
		if err == nil {
			w.log.Info("File created", zap.String("file", dest))
		}
	}()

	if _, err := content.WriteTo(f); err != nil {
		return fmt.Errorf("unable to write destination file: %w", err)
	}
	return nil
}
