package bridge

import (
	"testing"

	"src.vbridge.sh/pkg/retained"
	"src.vbridge.sh/pkg/tt"
)

func TestBindings(t *testing.T) {
	bs := NewBindings()
	bs.Register(Binding{Event: "click", Handle: 2, ID: 5})
	bs.Register(Binding{Event: "mouseover", Handle: 2, ID: 5})
	bs.Register(Binding{Event: "click", Handle: 1, ID: 4})
	// Replaces the existing binding.
	bs.Register(Binding{Event: "click", Handle: 2, ID: 6})

	tt.Test(t, tt.Fn("All", bs.All),
		tt.Args().Rets([]Binding{
			{"click", 1, 4}, {"click", 2, 6}, {"mouseover", 2, 5}}),
	)
	tt.Test(t, tt.Fn("BindingsFor", bs.BindingsFor),
		tt.Args(retained.Handle(2)).Rets([]Binding{{"click", 2, 6}, {"mouseover", 2, 5}}),
		tt.Args(retained.Handle(9)).Rets([]Binding(nil)),
	)
	tt.Test(t, tt.Fn("Lookup", bs.Lookup),
		tt.Args("click", retained.Handle(2)).Rets(Binding{"click", 2, 6}, true),
		tt.Args("keydown", retained.Handle(2)).Rets(Binding{}, false),
	)

	if bs.Len() != 3 {
		t.Errorf("Len() = %d, want 3", bs.Len())
	}
	if !bs.Unregister("mouseover", 2) || bs.Unregister("mouseover", 2) {
		t.Errorf("Unregister should succeed exactly once")
	}
	if n := bs.PurgeHandle(2); n != 1 {
		t.Errorf("PurgeHandle returned %d, want 1", n)
	}
	bs.Reset()
	if bs.Len() != 0 {
		t.Errorf("Len() = %d after Reset", bs.Len())
	}
}
