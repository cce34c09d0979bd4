//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package term

import (
	"errors"
	"os"
)

// ErrUnsupported is returned by Setup on platforms without raw mode support.
var ErrUnsupported = errors.New("terminal setup is not supported on this platform")

// Setup is not supported on this platform.
func Setup(in, out *os.File, mouse bool) (func() error, error) {
	return nil, ErrUnsupported
}
