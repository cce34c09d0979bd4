package ui

import (
	"testing"

	"src.vbridge.sh/pkg/tt"
)

func TestStyleSGR(t *testing.T) {
	tt.Test(t, tt.Fn("Style.SGR", Style.SGR),
		tt.Args(Style{}).Rets(""),
		tt.Args(Style{Bold: true}).Rets("1"),
		tt.Args(Style{Bold: true, Underlined: true}).Rets("1;4"),
		tt.Args(Style{Inverse: true, Fg: Red}).Rets("7;31"),
		tt.Args(Style{Bg: Blue}).Rets("44"),
	)
}

func TestParseColor(t *testing.T) {
	tt.Test(t, tt.Fn("ParseColor", ParseColor),
		tt.Args("red").Rets(Red, true),
		tt.Args("default").Rets(Default, true),
		tt.Args("mauve").Rets(Default, false),
	)
}

func TestText(t *testing.T) {
	text := T("foo", Bold).Concat(T("bar"))
	if got := text.String(); got != "foobar" {
		t.Errorf("String() = %q, want %q", got, "foobar")
	}
	if got, want := text.VTString(), "\033[1mfoo\033[mbar"; got != want {
		t.Errorf("VTString() = %q, want %q", got, want)
	}
	if T("") != nil {
		t.Errorf("T(\"\") should be nil")
	}
	styled := StyleText(text, Inverse)
	if !styled[0].Bold || !styled[0].Inverse || !styled[1].Inverse {
		t.Errorf("StyleText did not apply styling: %v", styled)
	}
	if text[1].Inverse {
		t.Errorf("StyleText modified its argument")
	}
}

func TestKeyString(t *testing.T) {
	tt.Test(t, tt.Fn("Key.String", Key.String),
		tt.Args(K('a')).Rets("a"),
		tt.Args(K(Tab, Shift)).Rets("Shift-Tab"),
		tt.Args(K('c', Ctrl)).Rets("Ctrl-c"),
		tt.Args(K(Up)).Rets("Up"),
		tt.Args(K(Enter)).Rets("Enter"),
	)
}
