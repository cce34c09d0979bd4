//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package term

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	enableSGRMouse  = "\033[?1000h\033[?1006h"
	disableSGRMouse = "\033[?1000l\033[?1006l"
)

// Setup puts the terminal referenced by in into raw mode, optionally enabling
// SGR mouse reporting on out. It returns a function that restores the
// terminal to its original state.
func Setup(in, out *os.File, mouse bool) (func() error, error) {
	fd := int(in.Fd())
	saved, err := unix.IoctlGetTermios(fd, getAttrIOCTL)
	if err != nil {
		return nil, fmt.Errorf("get terminal attributes: %w", err)
	}

	raw := *saved
	raw.Iflag &^= unix.ICRNL | unix.IXON | unix.ISTRIP | unix.INLCR | unix.IGNCR
	raw.Lflag &^= unix.ICANON | unix.ECHO | unix.IEXTEN
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, setAttrNowIOCTL, &raw); err != nil {
		return nil, fmt.Errorf("set terminal attributes: %w", err)
	}
	if mouse {
		out.WriteString(enableSGRMouse)
	}

	return func() error {
		if mouse {
			out.WriteString(disableSGRMouse)
		}
		return unix.IoctlSetTermios(fd, setAttrNowIOCTL, saved)
	}, nil
}
