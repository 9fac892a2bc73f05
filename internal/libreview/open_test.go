package libreview

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ulikunitz/xz"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestOpenPlainFile(t *testing.T) {
	content := []byte(export(row("2025-10-27 08:00", "0", "112", "", "")))
	path := writeFile(t, t.TempDir(), "glucose.csv", content)

	rc, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("plain file content altered by Open")
	}
}

func TestOpenGzip(t *testing.T) {
	content := []byte(export(row("2025-10-27 08:00", "0", "112", "", "")))

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(content); err != nil {
		t.Fatalf("compressing: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}

	// Deliberately no .gz extension: detection is by magic bytes.
	path := writeFile(t, t.TempDir(), "glucose.csv", buf.Bytes())

	rc, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("gzip content not transparently decompressed")
	}
}

func TestOpenXZ(t *testing.T) {
	content := []byte(export(row("2025-10-27 08:00", "0", "112", "", "")))

	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("creating xz writer: %v", err)
	}
	if _, err := xw.Write(content); err != nil {
		t.Fatalf("compressing: %v", err)
	}
	if err := xw.Close(); err != nil {
		t.Fatalf("closing xz writer: %v", err)
	}

	path := writeFile(t, t.TempDir(), "glucose.csv.xz", buf.Bytes())

	rc, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("xz content not transparently decompressed")
	}
}

func TestOpenTinyFile(t *testing.T) {
	// Shorter than any magic signature; must still open as plain.
	path := writeFile(t, t.TempDir(), "tiny.csv", []byte("ab"))

	rc, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if string(got) != "ab" {
		t.Errorf("content = %q, want ab", got)
	}
}

// closeRecorder wraps a reader and remembers whether Close was called.
type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestCloseReleasesDecompressor(t *testing.T) {
	path := writeFile(t, t.TempDir(), "glucose.csv", []byte("payload"))
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening: %v", err)
	}

	inner := &closeRecorder{Reader: f}
	rc := &decompressingReadCloser{reader: inner, file: f}

	if err := rc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !inner.closed {
		t.Error("decompressor left open after Close")
	}
}

func TestResolvePicksNewestMatch(t *testing.T) {
	dir := t.TempDir()
	older := writeFile(t, dir, "glucose_2025-10-20.csv", []byte("old"))
	newer := writeFile(t, dir, "glucose_2025-10-27.csv", []byte("new"))

	base := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, base, base); err != nil {
		t.Fatalf("setting mtime: %v", err)
	}
	if err := os.Chtimes(newer, base.Add(time.Minute), base.Add(time.Minute)); err != nil {
		t.Fatalf("setting mtime: %v", err)
	}

	got, err := Resolve(filepath.Join(dir, "glucose_*.csv"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != newer {
		t.Errorf("Resolve = %s, want newest %s", got, newer)
	}
}

func TestResolveNoMatch(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "*.csv"))
	if err == nil {
		t.Fatal("Resolve with no matches should fail")
	}
}

func TestLoadEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "glucose.csv", []byte(export(
		row("2025-10-27 08:00", "0", "112", "", ""),
		row("2025-10-27 08:15", "6", "", "", "breakfast"),
	)))

	f, err := Load(filepath.Join(dir, "*.csv"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Stats.Kept != 2 {
		t.Errorf("Kept = %d, want 2", f.Stats.Kept)
	}
}
