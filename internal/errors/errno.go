//go:build !plan9

package errors

import (
	"errors"
	"syscall"
)

// errnoTemporary reports whether err wraps a temporary syscall.Errno.
// ok is false when err carries no errno at all.
func errnoTemporary(err error) (temp, ok bool) {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false, false
	}
	return errno.Temporary(), true
}
