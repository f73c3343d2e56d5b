package grid

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hyprpal/hyprgrid/internal/layout"
)

type focusRecorder struct {
	nodes []Node
}

func (r *focusRecorder) listen(n Node) {
	r.nodes = append(r.nodes, n)
}

func newFocusGrid(t *testing.T) (*Grid[string], *focusRecorder) {
	t.Helper()
	g := New[string](layout.Rect{Width: 5, Height: 3}, layout.Horizontal)
	rec := &focusRecorder{}
	g.OnFocusMoved(rec.listen)
	return g, rec
}

func TestMoveFocusToNextNode(t *testing.T) {
	g, rec := newFocusGrid(t)
	window1 := mustAdd(t, g, "window 1", 1)
	window2 := mustAdd(t, g, "window 2", 2)
	g.SetFocus(window1)

	if !g.MoveFocus(layout.South) {
		t.Fatalf("expected focus to move")
	}

	if g.FocusedNode() != Node(window2) {
		t.Fatalf("expected window 2 to be focused, got %s", g.FocusedNode())
	}
	if got := rec.nodes[len(rec.nodes)-1]; got != Node(window2) {
		t.Fatalf("expected event for window 2, got %s", got)
	}
}

func TestMoveFocusToPreviousNode(t *testing.T) {
	g, rec := newFocusGrid(t)
	window1 := mustAdd(t, g, "window 1", 1)
	window2 := mustAdd(t, g, "window 2", 2)
	g.SetFocus(window2)

	g.MoveFocus(layout.North)

	if g.FocusedNode() != Node(window1) {
		t.Fatalf("expected window 1 to be focused, got %s", g.FocusedNode())
	}
	if got := rec.nodes[len(rec.nodes)-1]; got != Node(window1) {
		t.Fatalf("expected event for window 1, got %s", got)
	}
}

func TestMoveFocusPastLastSiblingIsNoop(t *testing.T) {
	g, rec := newFocusGrid(t)
	mustAdd(t, g, "window 1", 1)
	window2 := mustAdd(t, g, "window 2", 2)
	g.SetFocus(window2)
	fired := len(rec.nodes)

	if g.MoveFocus(layout.South) {
		t.Fatalf("expected no movement past the last sibling")
	}
	if g.FocusedNode() != Node(window2) {
		t.Fatalf("focus should stay on window 2")
	}
	if len(rec.nodes) != fired {
		t.Fatalf("expected no event, got %d new", len(rec.nodes)-fired)
	}
}

func TestMoveFocusToParentNode(t *testing.T) {
	g, rec := newFocusGrid(t)
	window1 := mustAdd(t, g, "window 1", 1)
	g.SetFocus(window1)

	g.MoveFocus(layout.Up)

	if g.FocusedNode() != Node(g.Root()) {
		t.Fatalf("expected root to be focused, got %s", g.FocusedNode())
	}
	if got := rec.nodes[len(rec.nodes)-1]; got != Node(g.Root()) {
		t.Fatalf("expected event for root, got %s", got)
	}
	if g.MoveFocus(layout.Up) {
		t.Fatalf("UP at the root should be a no-op")
	}
}

func TestMoveFocusToFirstChild(t *testing.T) {
	g, rec := newFocusGrid(t)
	window1 := mustAdd(t, g, "window 1", 1)
	mustAdd(t, g, "window 2", 2)

	g.MoveFocus(layout.Down)

	if g.FocusedNode() != Node(window1) {
		t.Fatalf("expected window 1 to be focused, got %s", g.FocusedNode())
	}
	if diff := cmp.Diff(1, len(rec.nodes)); diff != "" {
		t.Fatalf("unexpected event count (-want +got):\n%s", diff)
	}
	if g.MoveFocus(layout.Down) {
		t.Fatalf("DOWN from a leaf should be a no-op")
	}
}

func TestMoveFocusIgnoresCrossAxisDirections(t *testing.T) {
	g, rec := newFocusGrid(t)
	window1 := mustAdd(t, g, "window 1", 1)
	mustAdd(t, g, "window 2", 2)
	g.SetFocus(window1)
	fired := len(rec.nodes)

	for _, d := range []layout.Direction{layout.East, layout.West} {
		if g.MoveFocus(d) {
			t.Fatalf("%s should not move focus in a horizontal split", d)
		}
	}
	if len(rec.nodes) != fired {
		t.Fatalf("expected no events")
	}
}

func TestMoveFocusAtRootIgnoresCompass(t *testing.T) {
	g, rec := newFocusGrid(t)
	mustAdd(t, g, "window 1", 1)
	for _, d := range []layout.Direction{layout.North, layout.South, layout.East, layout.West} {
		if g.MoveFocus(d) {
			t.Fatalf("%s at the root should be a no-op", d)
		}
	}
	if len(rec.nodes) != 0 {
		t.Fatalf("expected no events, got %d", len(rec.nodes))
	}
}

func TestMoveFocusInVerticalSplit(t *testing.T) {
	g := New[string](layout.Rect{Width: 10, Height: 10}, layout.Vertical)
	left := mustAdd(t, g, "left", 1)
	right := mustAdd(t, g, "right", 2)
	g.SetFocus(left)

	if g.MoveFocus(layout.South) {
		t.Fatalf("SOUTH should not move focus in a vertical split")
	}
	if !g.MoveFocus(layout.East) || g.FocusedNode() != Node(right) {
		t.Fatalf("expected EAST to reach the right leaf")
	}
	if !g.MoveFocus(layout.West) || g.FocusedNode() != Node(left) {
		t.Fatalf("expected WEST to return to the left leaf")
	}
}

func TestSetFocusFiresUnconditionally(t *testing.T) {
	g, rec := newFocusGrid(t)
	window1 := mustAdd(t, g, "window 1", 1)

	g.SetFocus(window1)
	g.SetFocus(window1)
	if !g.SetFocusByID(1) {
		t.Fatalf("expected SetFocusByID to find content 1")
	}

	if len(rec.nodes) != 3 {
		t.Fatalf("expected 3 events, got %d", len(rec.nodes))
	}
}

func TestSetFocusIgnoresUnknownTargets(t *testing.T) {
	g, rec := newFocusGrid(t)
	mustAdd(t, g, "window 1", 1)

	g.SetFocus(nil)
	if g.SetFocusByID(99) {
		t.Fatalf("expected unknown id to be ignored")
	}
	other := New[string](layout.Rect{Width: 1, Height: 1}, layout.Horizontal)
	stranger := mustAdd(t, other, "elsewhere", 5)
	g.SetFocus(stranger)

	if len(rec.nodes) != 0 {
		t.Fatalf("expected no events, got %d", len(rec.nodes))
	}
	if g.FocusedNode() != Node(g.Root()) {
		t.Fatalf("expected focus to remain on root")
	}
}

func TestRemovingFocusedLeafRefocusesParent(t *testing.T) {
	g, rec := newFocusGrid(t)
	mustAdd(t, g, "window 1", 1)
	window2 := mustAdd(t, g, "window 2", 2)
	g.SetFocus(window2)

	g.RemoveContainerForContent(2)

	if g.FocusedNode() != Node(g.Root()) {
		t.Fatalf("expected focus to fall back to the root, got %s", g.FocusedNode())
	}
	if got := rec.nodes[len(rec.nodes)-1]; got != Node(g.Root()) {
		t.Fatalf("expected focus event for root, got %s", got)
	}
	if window2.Parent() != nil {
		t.Fatalf("expected removed leaf to lose its parent")
	}
}

func TestMoveNodeBackward(t *testing.T) {
	g, rec := newTestGrid(t)
	mustAdd(t, g, "window 1", 1)
	window2 := mustAdd(t, g, "window 2", 2)
	g.SetFocus(window2)
	g.CalculateChanges()

	if !g.MoveNode(layout.North) {
		t.Fatalf("expected node to move")
	}
	if !g.Dirty() {
		t.Fatalf("expected reorder to dirty the grid")
	}
	g.CalculateChanges()

	if len(rec.calls) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(rec.calls))
	}
	want := ChangeSet{
		NewContentPositions:      []Placement{},
		ModifiedContentPositions: []Placement{placement(2, 0, 0, 5, 1), placement(1, 0, 1, 5, 1)},
		RemovedContentIDs:        []string{},
	}
	if diff := cmp.Diff(want, rec.calls[1]); diff != "" {
		t.Fatalf("unexpected change set (-want +got):\n%s", diff)
	}
	wantTree := "Grid\n-SplitContainer (HORIZONTAL)\n--Content (id 2)\n--Content (id 1)"
	if got := g.String(); got != wantTree {
		t.Fatalf("unexpected tree:\n%s", got)
	}
	if g.FocusedNode() != Node(window2) {
		t.Fatalf("focus should follow the moved node")
	}
}

func TestMoveNodeForward(t *testing.T) {
	g, rec := newTestGrid(t)
	window1 := mustAdd(t, g, "window 1", 1)
	mustAdd(t, g, "window 2", 2)
	g.SetFocus(window1)
	g.CalculateChanges()

	g.MoveNode(layout.South)
	g.CalculateChanges()

	want := []Placement{placement(2, 0, 0, 5, 1), placement(1, 0, 1, 5, 1)}
	if diff := cmp.Diff(want, rec.calls[1].ModifiedContentPositions); diff != "" {
		t.Fatalf("unexpected modified placements (-want +got):\n%s", diff)
	}
	wantTree := "Grid\n-SplitContainer (HORIZONTAL)\n--Content (id 2)\n--Content (id 1)"
	if got := g.String(); got != wantTree {
		t.Fatalf("unexpected tree:\n%s", got)
	}
}

func TestMoveNodeNoops(t *testing.T) {
	g, _ := newTestGrid(t)
	window1 := mustAdd(t, g, "window 1", 1)
	mustAdd(t, g, "window 2", 2)
	g.CalculateChanges()

	if g.MoveNode(layout.South) {
		t.Fatalf("moving the root should be a no-op")
	}
	g.SetFocus(window1)
	if g.MoveNode(layout.North) {
		t.Fatalf("moving the first node north should be a no-op")
	}
	if g.MoveNode(layout.East) {
		t.Fatalf("EAST in a horizontal split should be a no-op")
	}
	if g.Dirty() {
		t.Fatalf("no-op moves must not dirty the grid")
	}
}
