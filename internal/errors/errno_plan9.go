//go:build plan9

package errors

import (
	"errors"
	"syscall"
)

// errnoTemporary reports whether err wraps a temporary
// syscall.ErrorString, the plan9 counterpart of an errno.
func errnoTemporary(err error) (temp, ok bool) {
	var es syscall.ErrorString
	if !errors.As(err, &es) {
		return false, false
	}
	return es.Temporary(), true
}
