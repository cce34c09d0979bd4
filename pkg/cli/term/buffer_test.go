package term

import (
	"reflect"
	"testing"

	"src.vbridge.sh/pkg/ui"
)

var bufferBuilderWritesTests = []struct {
	bb    *BufferBuilder
	text  string
	style string
	want  *Buffer
}{
	// Writing nothing.
	{NewBufferBuilder(10), "", "", &Buffer{Width: 10, Lines: [][]Cell{{}}}},
	// Writing a single rune.
	{NewBufferBuilder(10), "a", "1",
		&Buffer{Width: 10, Lines: [][]Cell{{{"a", "1"}}}}},
	// Writing control character.
	{NewBufferBuilder(10), "\033", "",
		&Buffer{Width: 10, Lines: [][]Cell{{{"^[", "7"}}}}},
	// Writing styled control character.
	{NewBufferBuilder(10), "a\033b", "1",
		&Buffer{Width: 10, Lines: [][]Cell{{
			{"a", "1"},
			{"^[", "1;7"},
			{"b", "1"}}}}},
	// Writing text containing a newline.
	{NewBufferBuilder(10), "a\nb", "1",
		&Buffer{Width: 10, Lines: [][]Cell{
			{{"a", "1"}}, {{"b", "1"}}}}},
	// Writing text containing a newline when there is indent.
	{NewBufferBuilder(10).SetIndent(2), "a\nb", "1",
		&Buffer{Width: 10, Lines: [][]Cell{
			{{"a", "1"}},
			{{" ", ""}, {" ", ""}, {"b", "1"}},
		}}},
	// Writing long text that triggers wrapping.
	{NewBufferBuilder(4), "aaaab", "1",
		&Buffer{Width: 4, Lines: [][]Cell{
			{{"a", "1"}, {"a", "1"}, {"a", "1"}, {"a", "1"}},
			{{"b", "1"}}}}},
	// Wide characters wrap as a whole.
	{NewBufferBuilder(3), "a你", "",
		&Buffer{Width: 3, Lines: [][]Cell{
			{{"a", ""}, {"你", ""}}}}},
	{NewBufferBuilder(2), "a你", "",
		&Buffer{Width: 2, Lines: [][]Cell{
			{{"a", ""}}, {{"你", ""}}}}},
}

func TestBufferBuilderWrites(t *testing.T) {
	for _, test := range bufferBuilderWritesTests {
		bb := test.bb
		bb.WriteStringSGR(test.text, test.style)
		b := bb.Buffer()
		if !reflect.DeepEqual(b, test.want) {
			t.Errorf("buf.writes(%q, %q) makes %v, want %v",
				test.text, test.style, b, test.want)
		}
	}
}

func TestBufferBuilder_WriteStyled(t *testing.T) {
	b := NewBufferBuilder(10).
		WriteStyled(ui.T("a", ui.Bold).Concat(ui.T("b"))).
		WriteSpaces(2, ui.Inverse).
		Buffer()
	want := &Buffer{Width: 10, Lines: [][]Cell{{
		{"a", "1"}, {"b", ""}, {" ", "7"}, {" ", "7"}}}}
	if !reflect.DeepEqual(b, want) {
		t.Errorf("got %v, want %v", b, want)
	}
}

func TestBufferBuilder_SetDotHere(t *testing.T) {
	b := NewBufferBuilder(10).Write("ab").Newline().Write("c").SetDotHere().Buffer()
	if b.Dot != (Pos{1, 1}) {
		t.Errorf("got dot %v, want {1 1}", b.Dot)
	}
}

func TestBuffer_String(t *testing.T) {
	b := NewBufferBuilder(10).Write("a  ").Newline().Write("b").Buffer()
	if got := b.String(); got != "a\nb" {
		t.Errorf("got %q, want %q", got, "a\nb")
	}
}

func TestBuffer_TrimToLines(t *testing.T) {
	b := NewBufferBuilder(10).
		Write("0").Newline().Write("1").Newline().Write("2").SetDotHere().Buffer()
	b.TrimToLines(1, 3)
	if b.String() != "1\n2" {
		t.Errorf("got %q, want %q", b.String(), "1\n2")
	}
	if b.Dot != (Pos{1, 1}) {
		t.Errorf("got dot %v, want {1 1}", b.Dot)
	}

	// Out-of-range bounds are clamped.
	b.TrimToLines(-1, 10)
	if b.String() != "1\n2" {
		t.Errorf("got %q after clamped trim", b.String())
	}
}

func TestBuffer_ExtendDown(t *testing.T) {
	b := NewBufferBuilder(5).Write("top").Buffer()
	b2 := NewBufferBuilder(7).Write("bottom").SetDotHere().Buffer()
	b.ExtendDown(b2, true)
	if b.String() != "top\nbottom" {
		t.Errorf("got %q", b.String())
	}
	if b.Width != 7 {
		t.Errorf("got width %d, want 7", b.Width)
	}
	if b.Dot != (Pos{1, 6}) {
		t.Errorf("got dot %v, want {1 6}", b.Dot)
	}
}

func TestBuffer_TTYString(t *testing.T) {
	b := NewBufferBuilder(4).Write("ab", ui.Bold).Buffer()
	want := "Width = 4, Dot = (0, 0)\n" +
		"┌────┐\n" +
		"│\033[1mab\033[m$ │\n" +
		"└────┘\n"
	if got := b.TTYString(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := (*Buffer)(nil).TTYString(); got != "nil" {
		t.Errorf("nil buffer gives %q", got)
	}
}
