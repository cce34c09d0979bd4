//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package term

import (
	"os"
	"strings"
	"testing"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

func TestSetup(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skip("pty not available:", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	canonical := func() bool {
		t.Helper()
		termios, err := unix.IoctlGetTermios(int(tty.Fd()), getAttrIOCTL)
		if err != nil {
			t.Fatal(err)
		}
		return termios.Lflag&unix.ICANON != 0
	}

	if !canonical() {
		t.Fatalf("fresh pty is not in canonical mode")
	}
	restore, err := Setup(tty, tty, false)
	if err != nil {
		t.Fatal(err)
	}
	if canonical() {
		t.Errorf("terminal still canonical after Setup")
	}
	if err := restore(); err != nil {
		t.Fatal(err)
	}
	if !canonical() {
		t.Errorf("terminal not canonical after restore")
	}
}

func TestSetup_RawInputIsDecoded(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skip("pty not available:", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	restore, err := Setup(tty, tty, false)
	if err != nil {
		t.Fatal(err)
	}
	defer restore()

	// Without raw mode the line discipline would hold this until a newline.
	ptmx.WriteString("x")
	r := NewReader(tty)
	defer r.Close()
	ev, err := r.ReadEvent()
	if err != nil || ev != K('x') {
		t.Errorf("got (%v, %v), want (%v, nil)", ev, err, K('x'))
	}
}

func TestSetup_NotATerminal(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Skip(err)
	}
	defer r.Close()
	defer w.Close()
	_, err = Setup(r, w, false)
	if err == nil || !strings.Contains(err.Error(), "get terminal attributes") {
		t.Errorf("got error %v, want terminal attributes error", err)
	}
}
