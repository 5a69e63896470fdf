package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func createZip(t *testing.T, zipPath string, names ...string) {
	t.Helper()

	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	for _, name := range names {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", name, err)
		}
		if _, err := fw.Write([]byte(name + " content")); err != nil {
			t.Fatalf("Failed to write content for %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to finalize zip: %v", err)
	}
}

func TestWalk(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "themes.zip")
	createZip(t, zipPath,
		"css/base.css",
		"css/print.css",
		"css/vendor/grid.css",
		"img/logo.png",
		"readme.txt",
	)

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{name: "glob in directory", pattern: "css/*.css", want: []string{"css/base.css", "css/print.css"}},
		{name: "directory prefix", pattern: "css/", want: []string{"css/base.css", "css/print.css", "css/vendor/grid.css"}},
		{name: "exact name", pattern: "css/print.css", want: []string{"css/print.css"}},
		{name: "leading dot slash", pattern: "./readme.txt", want: []string{"readme.txt"}},
		{name: "no match", pattern: "nonexistent/*.css", want: nil},
		{name: "empty pattern", pattern: "", want: []string{"css/base.css", "css/print.css", "css/vendor/grid.css", "img/logo.png", "readme.txt"}},
		{name: "malformed pattern", pattern: "css/[", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var visited []string
			err := Walk(zipPath, Glob(tt.pattern), func(archive string, file *zip.File) error {
				if archive != zipPath {
					t.Errorf("archive = %s, want %s", archive, zipPath)
				}
				visited = append(visited, file.Name)
				return nil
			})
			if err != nil {
				t.Fatalf("Walk() error = %v", err)
			}
			if !reflect.DeepEqual(visited, tt.want) {
				t.Errorf("visited %q, want %q", visited, tt.want)
			}
		})
	}

	t.Run("nil match visits everything", func(t *testing.T) {
		count := 0
		if err := Walk(zipPath, nil, func(string, *zip.File) error { count++; return nil }); err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		if count != 5 {
			t.Errorf("visited %d files, want 5", count)
		}
	})

	t.Run("walkFn returns error", func(t *testing.T) {
		expectedErr := errors.New("test error")
		err := Walk(zipPath, Glob("css/"), func(archive string, file *zip.File) error {
			return expectedErr
		})
		if err != expectedErr {
			t.Errorf("Walk() error = %v, want %v", err, expectedErr)
		}
	})
}

func TestWalk_InvalidArchive(t *testing.T) {
	t.Run("nonexistent file", func(t *testing.T) {
		err := Walk("/nonexistent/file.zip", nil, func(archive string, file *zip.File) error {
			return nil
		})
		if err == nil {
			t.Error("Expected error for nonexistent file")
		}
	})

	t.Run("invalid zip file", func(t *testing.T) {
		invalidZip := filepath.Join(t.TempDir(), "invalid.zip")
		if err := os.WriteFile(invalidZip, []byte("not a zip file"), 0644); err != nil {
			t.Fatalf("Failed to create invalid zip: %v", err)
		}
		err := Walk(invalidZip, nil, func(archive string, file *zip.File) error {
			return nil
		})
		if err == nil {
			t.Error("Expected error for invalid zip file")
		}
	})

	t.Run("unsafe entry", func(t *testing.T) {
		zipPath := filepath.Join(t.TempDir(), "slip.zip")
		createZip(t, zipPath, "../evil.css")
		err := Walk(zipPath, nil, func(archive string, file *zip.File) error {
			t.Errorf("unexpected visit of %s", file.Name)
			return nil
		})
		if err == nil {
			t.Error("Expected error for unsafe entry")
		}
	})
}

func TestWalk_SkipsDirectories(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "test.zip")

	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	w := zip.NewWriter(zipFile)
	dirHeader := &zip.FileHeader{Name: "css/"}
	dirHeader.SetMode(os.ModeDir | 0755)
	if _, err := w.CreateHeader(dirHeader); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	fw, err := w.Create("css/site.css")
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	fw.Write([]byte("p { margin: 1rem; }"))
	w.Close()
	zipFile.Close()

	var visited []string
	err = Walk(zipPath, Glob("css/"), func(archive string, file *zip.File) error {
		visited = append(visited, file.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if !reflect.DeepEqual(visited, []string{"css/site.css"}) {
		t.Errorf("visited %q, want only css/site.css", visited)
	}
}

func TestIsArchive(t *testing.T) {
	tmpDir := t.TempDir()

	zipPath := filepath.Join(tmpDir, "real.zip")
	createZip(t, zipPath, "a.css")

	// extension does not matter, only content does
	renamed := filepath.Join(tmpDir, "themes.bundle")
	createZip(t, renamed, "a.css")

	fake := filepath.Join(tmpDir, "fake.zip")
	if err := os.WriteFile(fake, []byte("not a real zip file"), 0644); err != nil {
		t.Fatal(err)
	}
	tiny := filepath.Join(tmpDir, "tiny.css")
	if err := os.WriteFile(tiny, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{zipPath, true},
		{renamed, true},
		{fake, false},
		{tiny, false},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			got, err := IsArchive(tt.path)
			if err != nil {
				t.Fatalf("IsArchive() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsArchive() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := IsArchive(filepath.Join(tmpDir, "absent.zip")); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestSplit(t *testing.T) {
	tmpDir := t.TempDir()
	zipPath := filepath.Join(tmpDir, "themes.zip")
	createZip(t, zipPath, "css/base.css")
	plain := filepath.Join(tmpDir, "plain.css")
	if err := os.WriteFile(plain, []byte("p {}"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		src       string
		wantOK    bool
		wantArc   string
		wantInner string
	}{
		{name: "pattern inside archive", src: filepath.Join(zipPath, "css", "*.css"), wantOK: true, wantArc: zipPath, wantInner: "css/*.css"},
		{name: "archive itself", src: zipPath, wantOK: true, wantArc: zipPath, wantInner: ""},
		{name: "plain file", src: plain, wantOK: false},
		{name: "below plain file", src: filepath.Join(plain, "x.css"), wantOK: false},
		{name: "glob in directory", src: filepath.Join(tmpDir, "*.css"), wantOK: false},
		{name: "nothing exists", src: filepath.Join(tmpDir, "absent", "a.css"), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arc, inner, ok := Split(tt.src)
			if ok != tt.wantOK {
				t.Fatalf("Split() ok = %v, want %v", ok, tt.wantOK)
			}
			if arc != tt.wantArc || inner != tt.wantInner {
				t.Errorf("Split() = (%q, %q), want (%q, %q)", arc, inner, tt.wantArc, tt.wantInner)
			}
		})
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"css/site.css", true},
		{"a..b/site.css", true},
		{"../site.css", false},
		{"css/../../site.css", false},
		{"/etc/passwd", false},
		{`\windows\file`, false},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.name); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
