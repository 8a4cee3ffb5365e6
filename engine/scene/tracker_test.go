package scene

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTrackerMovedDiagnostic(t *testing.T) {
	s, _ := newTestScene(t)
	core, logs := observer.New(zapcore.DebugLevel)
	tr := NewTracker[*meshComp](zap.New(core), "mesh")

	a := s.Root().NewChild("a")
	b := s.Root().NewChild("b")
	m := &meshComp{}

	tr.Track(a, m)
	tr.Track(a, m)
	if logs.Len() != 0 {
		t.Fatal("re-tracking on the same node logged")
	}
	tr.Track(b, m)
	if logs.FilterMessage("mesh moved to new node").Len() != 1 {
		t.Fatalf("moved diagnostics = %d, want 1", logs.Len())
	}
	if n, ok := tr.Node(m); !ok || n.ID() != b.ID() {
		t.Fatal("tracker did not reassign the node")
	}
	if tr.Len() != 1 {
		t.Fatalf("Len = %d, want 1", tr.Len())
	}
}

func TestTrackerOrderAndCompaction(t *testing.T) {
	s, _ := newTestScene(t)
	tr := NewTracker[*meshComp](nil, "mesh")
	n := s.Root().NewChild("n")

	comps := make([]*meshComp, 10)
	for i := range comps {
		comps[i] = &meshComp{name: string(rune('a' + i))}
		tr.Track(n, comps[i])
	}
	for i := 0; i < 8; i++ {
		if i%2 == 0 || i == 7 {
			tr.Untrack(comps[i])
		}
	}
	if tr.Untrack(comps[0]) {
		t.Fatal("Untrack of a removed component returned true")
	}

	var got string
	tr.Each(func(_ Node, c *meshComp) { got += c.name })
	if got != "bdfij" {
		t.Fatalf("iteration order = %q, want bdfij", got)
	}
	if tr.Len() != 5 {
		t.Fatalf("Len = %d, want 5", tr.Len())
	}

	tr.Untrack(comps[9])
	got = ""
	tr.Each(func(_ Node, c *meshComp) { got += c.name })
	if got != "bdfi" {
		t.Fatalf("after compaction order = %q, want bdfi", got)
	}
}
