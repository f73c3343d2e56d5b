package grid

import "github.com/hyprpal/hyprgrid/internal/layout"

// FocusedNode returns the focused node. It is never nil.
func (g *Grid[T]) FocusedNode() Node {
	return g.focused
}

// SetFocus focuses n and notifies listeners even when n already had focus.
// A nil node or one outside the tree is ignored.
func (g *Grid[T]) SetFocus(n Node) {
	if n == nil || !contains(g.root, n) {
		return
	}
	g.setFocused(n)
}

// SetFocusByID focuses the leaf registered under contentID.
func (g *Grid[T]) SetFocusByID(contentID int) bool {
	leaf, ok := g.registry[contentID]
	if !ok {
		return false
	}
	g.SetFocus(leaf)
	return true
}

func (g *Grid[T]) setFocused(n Node) {
	g.focused = n
	g.focusMoved.Fire(n)
}

// MoveFocus walks focus through the tree. UP selects the parent and DOWN the
// first child. Compass directions select a sibling, but only along the
// parent's split axis. Anything that would leave the tree is a no-op. The
// focus-moved event fires only when the focused node changes.
func (g *Grid[T]) MoveFocus(d layout.Direction) bool {
	current := g.focused
	var next Node
	switch d {
	case layout.Up:
		if parent := current.Parent(); parent != nil {
			next = parent
		}
	case layout.Down:
		if children := current.Children(); len(children) > 0 {
			next = children[0]
		}
	default:
		next = g.sibling(current, d)
	}
	if next == nil || next == current {
		return false
	}
	g.setFocused(next)
	return true
}

func (g *Grid[T]) sibling(n Node, d layout.Direction) Node {
	parent := n.Parent()
	if parent == nil || !parent.orientation.Accepts(d) {
		return nil
	}
	i := parent.IndexOf(n)
	j := i + d.Delta()
	if i < 0 || j < 0 || j >= len(parent.children) {
		return nil
	}
	return parent.children[j]
}

// MoveNode swaps the focused node with its neighbour along d. The move must
// follow the parent's split axis; the root and out-of-range moves are
// no-ops. A successful swap marks the grid dirty.
func (g *Grid[T]) MoveNode(d layout.Direction) bool {
	parent := g.focused.Parent()
	if parent == nil || !parent.orientation.Accepts(d) {
		return false
	}
	if !parent.ReorderChild(g.focused, d.Delta()) {
		return false
	}
	g.dirty = true
	g.logger.Debugf("moved %s %s", g.focused, d)
	return true
}
