package libreview

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ulikunitz/xz"
)

// Compression magic bytes. LibreView exports are plain CSV but people
// archive them; gzip and xz cover what shows up in practice.
var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

type decompressingReadCloser struct {
	reader io.Reader
	file   *os.File
}

func (d *decompressingReadCloser) Read(p []byte) (int, error) { return d.reader.Read(p) }

// Close closes the decompressor when it is a Closer, then the file.
func (d *decompressingReadCloser) Close() error {
	if closer, ok := d.reader.(io.Closer); ok {
		closer.Close()
	}
	return d.file.Close()
}

// Open opens an export file for reading, transparently decompressing
// gzip and xz archives. Detection is by magic bytes, not extension.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	header := make([]byte, len(xzMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, gzipMagic):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("libreview: bad gzip stream in %s: %w", path, err)
		}
		return &decompressingReadCloser{reader: gz, file: f}, nil

	case bytes.HasPrefix(header, xzMagic):
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("libreview: bad xz stream in %s: %w", path, err)
		}
		return &decompressingReadCloser{reader: xr, file: f}, nil

	default:
		return f, nil
	}
}

// Resolve expands a path or glob pattern to a single export file.
// When multiple files match, the most recently modified one wins,
// which is what you want when the portal appends a date to each
// download.
func Resolve(pattern string) (string, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return "", fmt.Errorf("libreview: bad input pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("libreview: no files match %q", pattern)
	}

	type candidate struct {
		path string
		mod  int64
	}
	cands := make([]candidate, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		cands = append(cands, candidate{path: m, mod: info.ModTime().UnixNano()})
	}
	if len(cands) == 0 {
		return "", fmt.Errorf("libreview: no readable files match %q", pattern)
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].mod > cands[j].mod })
	return cands[0].path, nil
}

// Load resolves, opens and parses an export in one call.
func Load(pattern string) (*File, error) {
	path, err := Resolve(pattern)
	if err != nil {
		return nil, err
	}
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Parse(rc)
}
