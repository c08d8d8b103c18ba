// Package assets provides the blueprint asset boundary: a blocking loader
// contract, a disk-backed implementation, and a keyed cache that memoizes
// loaded buffers.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Asset is an immutable byte buffer loaded from storage. A zero-size
// asset means the load failed or the file was empty; callers treat it as
// "not found".
type Asset struct {
	Filename string
	Data     []byte
}

func (a *Asset) Size() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}

// Loader fetches asset bytes synchronously. Implementations may block on
// I/O; retry and backpressure are the implementation's concern.
type Loader interface {
	LoadNow(filename string) (*Asset, error)
}

// DiskLoader reads assets from a root directory.
type DiskLoader struct {
	Root string
}

func NewDiskLoader(root string) *DiskLoader {
	return &DiskLoader{Root: root}
}

func (l *DiskLoader) LoadNow(filename string) (*Asset, error) {
	data, err := os.ReadFile(filepath.Join(l.Root, filename))
	if err != nil {
		return nil, fmt.Errorf("load asset %q: %w", filename, err)
	}
	return &Asset{Filename: filename, Data: data}, nil
}

// structured-text extensions decoded directly; everything else is assumed
// to name a binary blueprint
var textExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// BinaryExtension is appended to blueprint names that do not carry a
// recognized structured-text extension.
const BinaryExtension = ".bin"

// CanonicalFilename normalizes a blueprint name to the filename it is
// stored under.
func CanonicalFilename(name string) string {
	if textExtensions[strings.ToLower(filepath.Ext(name))] {
		return name
	}
	return name + BinaryExtension
}
