package term

import (
	"strings"
	"testing"
)

func TestWriter(t *testing.T) {
	sb := &strings.Builder{}
	testOutput := func(want string) {
		t.Helper()
		if sb.String() != want {
			t.Errorf("got %q, want %q", sb.String(), want)
		}
		sb.Reset()
	}

	w := NewWriter(sb)
	w.UpdateBuffer(NewBufferBuilder(10).Write("line 1").SetDotHere().Buffer(), false)
	testOutput(hideCursor + "\rline 1\r\033[6C" + showCursor)

	// Only the changed suffix is rewritten.
	w.UpdateBuffer(NewBufferBuilder(10).Write("line 2").SetDotHere().Buffer(), false)
	testOutput(hideCursor + "\r\033[5C\033[K2\r\033[6C" + showCursor)

	// An unchanged buffer only repositions the cursor.
	w.UpdateBuffer(NewBufferBuilder(10).Write("line 2").SetDotHere().Buffer(), false)
	testOutput(hideCursor + "\r\r\033[6C" + showCursor)

	w.UpdateBuffer(NewBufferBuilder(10).Write("x").Buffer(), true)
	testOutput(hideCursor + "\r \033[J\rx\r" + showCursor)

	if w.Buffer().String() != "x" {
		t.Errorf("current buffer is %q, want %q", w.Buffer().String(), "x")
	}
	w.ResetBuffer()
	if len(w.Buffer().Lines) != 0 {
		t.Errorf("ResetBuffer did not reset the buffer")
	}
}

func TestWriter_ShrinkingBufferErasesOldLines(t *testing.T) {
	sb := &strings.Builder{}
	w := NewWriter(sb)
	w.UpdateBuffer(NewBufferBuilder(10).Write("a").Newline().Write("b").Buffer(), false)
	sb.Reset()

	w.UpdateBuffer(NewBufferBuilder(10).Write("a").Buffer(), false)
	want := hideCursor + "\r" + "\n\033[J\033[A" + "\r" + showCursor
	if sb.String() != want {
		t.Errorf("got %q, want %q", sb.String(), want)
	}
}

func TestWriter_StyledCells(t *testing.T) {
	sb := &strings.Builder{}
	w := NewWriter(sb)
	w.UpdateBuffer(NewBufferBuilder(10).WriteStringSGR("ab", "1").Buffer(), false)
	want := hideCursor + "\r\033[0;1mab\033[0;m\r" + showCursor
	if sb.String() != want {
		t.Errorf("got %q, want %q", sb.String(), want)
	}
}
