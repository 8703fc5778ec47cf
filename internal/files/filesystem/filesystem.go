package filesystem

import (
	"fmt"
	"io/fs"
)

// FileInfo is an alias for fs.FileInfo from the standard library.
type FileInfo = fs.FileInfo

// WalkFunc is called for every regular file found by Provider.Walk.
// rel is slash-separated and relative to the walked directory.
// Returning an error stops the walk and is returned from Walk.
type WalkFunc func(rel string, info FileInfo) error

// Provider gives read access to a project tree.
type Provider interface {
	// Walk visits every regular file under dir in lexical order.
	Walk(dir string, fn WalkFunc) error

	// ReadFile reads the file at name.
	ReadFile(name string) ([]byte, error)

	// Stat returns file information for name.
	Stat(name string) (FileInfo, error)
}

// callSafely runs fn and converts a panic into an error so one bad callback
// cannot crash a whole walk.
func callSafely(fn WalkFunc, rel string, info FileInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("walk callback panicked at %s: %v", rel, r)
		}
	}()
	return fn(rel, info)
}
