package progtest

import (
	"fmt"
	"os"
	"testing"
)

func TestRun(t *testing.T) {
	r := Run(t, func(fds [3]*os.File, args []string) int {
		fmt.Fprint(fds[1], args)
		fmt.Fprint(fds[2], "err")
		return 3
	}, "a", "b")
	if r != (Result{3, "[vbridge a b]", "err"}) {
		t.Errorf("got %+v", r)
	}
}
