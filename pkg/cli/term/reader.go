package term

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"src.vbridge.sh/pkg/ui"
)

// Reader reads events from the terminal.
type Reader interface {
	// ReadEvent reads a single event from the terminal.
	ReadEvent() (Event, error)
	// Close releases resources associated with the Reader. Any outstanding
	// ReadEvent call will be aborted, returning ErrStopped.
	Close()
}

// ErrStopped is returned by Reader when Close is called during a ReadEvent
// method.
var ErrStopped = errors.New("stopped")

var errTimeout = errors.New("timed out")

type seqError struct {
	msg string
	seq string
}

func (err seqError) Error() string {
	return fmt.Sprintf("%s: %q", err.msg, err.seq)
}

// IsReadErrorRecoverable returns whether an error returned by Reader is
// recoverable.
func IsReadErrorRecoverable(err error) bool {
	if _, ok := err.(seqError); ok {
		return true
	}
	return err == ErrStopped || err == errTimeout
}

// Timeout for bytes in escape sequences. Modern terminal emulators send escape
// sequences very fast, so 10ms is more than sufficient. SSH connections on a
// slow link might be problematic though.
var keySeqTimeout = 10 * time.Millisecond

// Used by readRune to signal end of current sequence.
const runeEndOfSeq rune = -1

// NewReader creates a new Reader on the given input, typically a terminal
// file in raw mode.
//
// The bytes are pumped from the input by a goroutine. Close stops delivering
// events immediately, but the goroutine only exits when the pending read on
// the underlying input returns.
func NewReader(r io.Reader) Reader {
	rd := &reader{byteCh: make(chan byte, 64), errCh: make(chan error, 1), stopCh: make(chan struct{})}
	go rd.pump(r)
	return rd
}

type reader struct {
	byteCh   chan byte
	errCh    chan error
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (rd *reader) pump(r io.Reader) {
	var b [64]byte
	for {
		n, err := r.Read(b[:])
		for i := 0; i < n; i++ {
			select {
			case rd.byteCh <- b[i]:
			case <-rd.stopCh:
				return
			}
		}
		if err != nil {
			rd.errCh <- err
			return
		}
	}
}

func (rd *reader) Close() {
	rd.stopOnce.Do(func() { close(rd.stopCh) })
}

// readByte reads one byte. A negative timeout means waiting forever.
func (rd *reader) readByte(timeout time.Duration) (byte, error) {
	var timeoutCh <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case b := <-rd.byteCh:
		return b, nil
	default:
	}
	select {
	case b := <-rd.byteCh:
		return b, nil
	case err := <-rd.errCh:
		// Make the error sticky.
		rd.errCh <- err
		// The pump queues all bytes before the error; drain them first.
		select {
		case b := <-rd.byteCh:
			return b, nil
		default:
		}
		return 0, err
	case <-rd.stopCh:
		return 0, ErrStopped
	case <-timeoutCh:
		return 0, errTimeout
	}
}

func (rd *reader) readRune(timeout time.Duration) (rune, error) {
	leader, err := rd.readByte(timeout)
	if err != nil {
		return -1, err
	}
	var count int
	switch {
	case leader>>7 == 0:
		return rune(leader), nil
	case leader>>5 == 0x6:
		count = 1
	case leader>>4 == 0xe:
		count = 2
	case leader>>3 == 0x1e:
		count = 3
	default:
		return -1, seqError{"bad utf8 leader", string(leader)}
	}
	buf := []byte{leader}
	for i := 0; i < count; i++ {
		b, err := rd.readByte(keySeqTimeout)
		if err != nil {
			return -1, err
		}
		buf = append(buf, b)
	}
	r, _ := utf8.DecodeRune(buf)
	if r == utf8.RuneError {
		return -1, seqError{"bad utf8", string(buf)}
	}
	return r, nil
}

func (rd *reader) ReadEvent() (event Event, err error) {
	var r rune
	r, err = rd.readRune(-1)
	if err != nil {
		return
	}

	currentSeq := string(r)
	// Attempts to read a rune within a timeout of keySeqTimeout. It returns
	// runeEndOfSeq if there is any error; the caller should terminate the
	// current sequence when it sees that value.
	readRune := func() rune {
		r, e := rd.readRune(keySeqTimeout)
		if e != nil {
			return runeEndOfSeq
		}
		currentSeq += string(r)
		return r
	}
	badSeq := func(msg string) {
		err = seqError{msg, currentSeq}
	}

	if r != 0x1b {
		return KeyEvent(ctrlModify(r)), nil
	}

	r2 := readRune()
	switch r2 {
	case runeEndOfSeq:
		// Nothing follows. Taken as a lone Escape.
		event = KeyEvent{'[', ui.Ctrl}
	case '[':
		// A '[' follows. CSI style function key sequence.
		r = readRune()
		if r == runeEndOfSeq {
			event = KeyEvent{'[', ui.Alt}
			return
		}

		nums := make([]int, 0, 2)
		var starter rune
		if r == '<' {
			starter = r
			r = readRune()
		}
	CSISeq:
		for {
			switch {
			case r == ';':
				nums = append(nums, 0)
			case '0' <= r && r <= '9':
				if len(nums) == 0 {
					nums = append(nums, 0)
				}
				cur := len(nums) - 1
				nums[cur] = nums[cur]*10 + int(r-'0')
			case r == runeEndOfSeq:
				badSeq("incomplete CSI")
				return
			default: // Treat as a terminator.
				break CSISeq
			}
			r = readRune()
		}
		if starter == '<' && (r == 'm' || r == 'M') {
			// SGR-style mouse event.
			if len(nums) != 3 {
				badSeq("bad SGR mouse event")
				return
			}
			event = MouseEvent{Pos{nums[2], nums[1]}, r == 'M', nums[0] & 3, mouseModify(nums[0])}
			return
		}
		k := parseCSI(nums, r)
		if k == (ui.Key{}) {
			badSeq("bad CSI")
			return
		}
		event = KeyEvent(k)
	case 'O':
		// An 'O' follows. G3 style function key sequence: read one rune.
		r = readRune()
		if r == runeEndOfSeq {
			// Nothing follows after 'O'. Taken as Alt-O.
			event = KeyEvent{'O', ui.Alt}
			return
		}
		k, ok := g3Seq[r]
		if !ok {
			badSeq("bad G3")
			return
		}
		event = KeyEvent(k)
	default:
		// Something other than '[' follows. Taken as an Alt-modified key,
		// possibly also modified by Ctrl.
		k := ctrlModify(r2)
		k.Mod |= ui.Alt
		event = KeyEvent(k)
	}
	return
}

// Determines whether a rune corresponds to a Ctrl-modified key and returns the
// ui.Key the rune represents.
func ctrlModify(r rune) ui.Key {
	switch r {
	case 0x0:
		return ui.K('`', ui.Ctrl) // ^@
	case 0x1e:
		return ui.K('6', ui.Ctrl) // ^^
	case 0x1f:
		return ui.K('/', ui.Ctrl) // ^_
	case '\r':
		// Raw mode delivers Enter as ^M.
		return ui.K(ui.Enter)
	case ui.Tab, ui.Enter, ui.Backspace: // ^I ^J ^?
		// Ambiguous Ctrl keys; prefer the non-Ctrl form as they are more likely.
		return ui.K(r)
	default:
		if 0x1 <= r && r <= 0x1d {
			return ui.K(r+0x40, ui.Ctrl)
		}
	}
	return ui.K(r)
}

// G3-style key sequences: \eO followed by exactly one character. For instance,
// \eOA is Up.
var g3Seq = map[rune]ui.Key{
	'A': ui.K(ui.Up), 'B': ui.K(ui.Down), 'C': ui.K(ui.Right), 'D': ui.K(ui.Left),
	'H': ui.K(ui.Home), 'F': ui.K(ui.End),
}

// CSI-style key sequences identified by the last rune. For instance, \e[A is
// Up. When modified, two numerical arguments are added, the first always being
// 1 and the second identifying the modifier. For instance, \e[1;5A is Ctrl-Up.
var csiSeqByLast = map[rune]ui.Key{
	'A': ui.K(ui.Up), 'B': ui.K(ui.Down), 'C': ui.K(ui.Right), 'D': ui.K(ui.Left),
	'H': ui.K(ui.Home), 'F': ui.K(ui.End),
	'Z': ui.K(ui.Tab, ui.Shift),
}

// CSI-style key sequences ending with '~' with by one or two numerical
// arguments. The first argument identifies the key, and the optional second
// argument identifies the modifier. For instance, \e[3~ is Delete, and \e[3;5~
// is Ctrl-Delete.
var csiSeqTilde = map[int]rune{
	1: ui.Home, 2: ui.Insert, 3: ui.Delete, 4: ui.End,
	5: ui.PageUp, 6: ui.PageDown, 7: ui.Home, 8: ui.End,
}

func parseCSI(nums []int, last rune) ui.Key {
	if k, ok := csiSeqByLast[last]; ok {
		switch {
		case len(nums) == 0:
			return k
		case len(nums) == 2 && nums[0] == 1:
			return xtermModify(k, nums[1])
		default:
			return ui.Key{}
		}
	}
	if last == '~' && (len(nums) == 1 || len(nums) == 2) {
		if r, ok := csiSeqTilde[nums[0]]; ok {
			k := ui.K(r)
			if len(nums) == 1 {
				return k
			}
			return xtermModify(k, nums[1])
		}
	}
	return ui.Key{}
}

func xtermModify(k ui.Key, mod int) ui.Key {
	if mod < 0 || mod > 16 {
		return ui.Key{}
	}
	if mod == 0 {
		return k
	}
	modFlags := mod - 1
	if modFlags&0x1 != 0 {
		k.Mod |= ui.Shift
	}
	if modFlags&0x2 != 0 {
		k.Mod |= ui.Alt
	}
	if modFlags&0x4 != 0 {
		k.Mod |= ui.Ctrl
	}
	if modFlags&0x8 != 0 {
		// This should be Meta, but we currently conflate Meta and Alt.
		k.Mod |= ui.Alt
	}
	return k
}

func mouseModify(n int) ui.Mod {
	var mod ui.Mod
	if n&4 != 0 {
		mod |= ui.Shift
	}
	if n&8 != 0 {
		mod |= ui.Alt
	}
	if n&16 != 0 {
		mod |= ui.Ctrl
	}
	return mod
}
