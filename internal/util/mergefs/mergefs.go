// Package mergefs overlays several file systems on top of each other.
package mergefs

import (
	"errors"
	"io/fs"
)

type mergeFS struct{ subs []fs.FS }

func (f *mergeFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	for _, sub := range f.subs {
		file, err := sub.Open(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return file, err
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// New returns a file system which opens each file from the first of subs containing it.
func New(subs ...fs.FS) fs.FS {
	return &mergeFS{subs: subs}
}
