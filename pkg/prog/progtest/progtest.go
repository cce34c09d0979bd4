// Package progtest runs the vbridge command line in tests.
package progtest

import (
	"io"
	"os"
	"testing"

	"src.vbridge.sh/pkg/must"
)

// Result is the outcome of a run.
type Result struct {
	Exit           int
	Stdout, Stderr string
}

// Run calls run with the given arguments, prefixed with "vbridge". Stdin is
// empty; stdout and stderr are collected.
func Run(t *testing.T, run func([3]*os.File, []string) int, args ...string) Result {
	t.Helper()
	r0, w0 := must.OK2(os.Pipe())
	w0.Close()
	defer r0.Close()
	r1, w1 := must.OK2(os.Pipe())
	r2, w2 := must.OK2(os.Pipe())

	outCh, errCh := drain(r1), drain(r2)
	exit := run([3]*os.File{r0, w1, w2}, append([]string{"vbridge"}, args...))
	w1.Close()
	w2.Close()
	return Result{exit, <-outCh, <-errCh}
}

// Reads in the background, so that large outputs don't block the program.
func drain(r *os.File) <-chan string {
	ch := make(chan string, 1)
	go func() {
		ch <- string(must.OK1(io.ReadAll(r)))
		r.Close()
	}()
	return ch
}
