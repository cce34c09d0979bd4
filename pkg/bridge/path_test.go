package bridge

import (
	"testing"

	"src.vbridge.sh/pkg/tt"
	"src.vbridge.sh/pkg/vdom"
)

func TestNormalizePath(t *testing.T) {
	tt.Test(t, tt.Fn("NormalizePath", NormalizePath),
		tt.Args(0, vdom.Path{}).Rets(vdom.Path{0}),
		tt.Args(0, vdom.Path(nil)).Rets(vdom.Path{0}),
		tt.Args(0, vdom.Path{0}).Rets(vdom.Path{0, 0}),
		tt.Args(2, vdom.Path{1, 3}).Rets(vdom.Path{2, 1, 3}),
	)
}

func TestNormalizePath_DoesNotAlias(t *testing.T) {
	p := make(vdom.Path, 1, 8)
	abs := NormalizePath(1, p)
	abs[1] = 42
	if p[0] != 0 {
		t.Errorf("NormalizePath modified its argument")
	}
}
