package refs

import (
	"testing"

	"storyloom/internal/model"
)

func sample() []model.Node {
	return []model.Node{
		{ID: "a", Type: model.NodeTypeMain, Next: "b", Branches: []model.Branch{
			{Choice: "1", Entry: "c", Exit: "b"},
			{Choice: "2", Entry: "b", Exit: "d"},
		}},
		{ID: "b", Type: model.NodeTypeMain, Next: "a", Branches: []model.Branch{}},
		{ID: "c", Type: model.NodeTypeBranch, Next: "b"},
		{ID: "d", Type: model.NodeTypeBranch, Next: "ghost"},
	}
}

func TestCascadeClear_ClearsEntryAndExitIndependently(t *testing.T) {
	t.Parallel()

	nodes := sample()
	n := CascadeClear(nodes, "b")
	if n != 4 {
		t.Fatalf("expected 4 cleared refs; got %d", n)
	}
	if nodes[0].Next != "" || nodes[2].Next != "" {
		t.Fatalf("expected next refs cleared: %+v", nodes)
	}
	if br := nodes[0].Branches[0]; br.Entry != "c" || br.Exit != "" {
		t.Fatalf("branch 0: expected only exit cleared; got %+v", br)
	}
	if br := nodes[0].Branches[1]; br.Entry != "" || br.Exit != "d" {
		t.Fatalf("branch 1: expected only entry cleared; got %+v", br)
	}
	if nodes[1].Next != "a" {
		t.Fatalf("unrelated ref touched: %+v", nodes[1])
	}
	if nodes[3].Next != "ghost" {
		t.Fatalf("pre-existing dangling ref should be left alone; got %q", nodes[3].Next)
	}
}

func TestCascadeClear_Idempotent(t *testing.T) {
	t.Parallel()

	nodes := sample()
	CascadeClear(nodes, "c")
	if n := CascadeClear(nodes, "c"); n != 0 {
		t.Fatalf("second pass should touch nothing; got %d", n)
	}
	if n := CascadeClear(nodes, ""); n != 0 {
		t.Fatalf("empty id should be ignored; got %d", n)
	}
}

func TestPropagateRename(t *testing.T) {
	t.Parallel()

	nodes := sample()
	nodes[1].ID = "hall"
	n := PropagateRename(nodes, "b", "hall")
	if n != 4 {
		t.Fatalf("expected 4 updated refs; got %d", n)
	}
	if nodes[0].Next != "hall" || nodes[2].Next != "hall" {
		t.Fatalf("next not renamed: %+v", nodes)
	}
	if nodes[0].Branches[0].Exit != "hall" || nodes[0].Branches[1].Entry != "hall" {
		t.Fatalf("branch refs not renamed: %+v", nodes[0].Branches)
	}
	if nodes[0].Branches[0].Entry != "c" || nodes[0].Branches[1].Exit != "d" {
		t.Fatalf("unrelated branch refs touched: %+v", nodes[0].Branches)
	}
	if PropagateRename(nodes, "hall", "hall") != 0 {
		t.Fatalf("self rename should be a no-op")
	}
}

func TestOutgoingAndReferenced(t *testing.T) {
	t.Parallel()

	nodes := sample()
	out := Outgoing(nodes)
	if len(out) != 8 {
		t.Fatalf("expected 8 refs; got %d: %+v", len(out), out)
	}
	if out[0] != (Ref{From: "a", Field: "next", Branch: -1, To: "b"}) {
		t.Fatalf("unexpected first ref: %+v", out[0])
	}
	ref := Referenced(nodes)
	for _, id := range []string{"a", "b", "c", "d", "ghost"} {
		if _, ok := ref[id]; !ok {
			t.Fatalf("expected %q referenced", id)
		}
	}
}
