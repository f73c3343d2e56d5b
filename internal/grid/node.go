package grid

import (
	"fmt"

	"github.com/hyprpal/hyprgrid/internal/layout"
)

// Kind discriminates the two node variants.
type Kind int

const (
	KindContainer Kind = iota
	KindContent
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindContent:
		return "content"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is a vertex in the layout tree. The set of implementations is closed:
// *Container and *Content[T].
type Node interface {
	Kind() Kind
	// Parent returns the owning container, or nil for the root and for nodes
	// that have been removed from the tree.
	Parent() *Container
	Children() []Node
	String() string

	setParent(*Container)
	leafID() int
}

// Container is a split node. It owns its children; the children's parent
// pointers are back-references used for navigation only.
type Container struct {
	id          string
	orientation layout.Orientation
	parent      *Container
	children    []Node
}

func newContainer(id string, orientation layout.Orientation) *Container {
	return &Container{id: id, orientation: orientation}
}

func (c *Container) Kind() Kind { return KindContainer }
func (c *Container) Parent() *Container { return c.parent }
func (c *Container) ID() string { return c.id }
func (c *Container) Orientation() layout.Orientation { return c.orientation }
func (c *Container) setParent(p *Container) { c.parent = p }
func (c *Container) leafID() int { return -1 }
func (c *Container) String() string { return fmt.Sprintf("SplitContainer (%s)", c.orientation) }
func (c *Container) Len() int { return len(c.children) }

// Children returns a copy of the ordered child list.
func (c *Container) Children() []Node {
	if len(c.children) == 0 {
		return nil
	}
	return append([]Node(nil), c.children...)
}

// AddChild appends n and makes c its parent.
func (c *Container) AddChild(n Node) {
	c.children = append(c.children, n)
	n.setParent(c)
}

// IndexOf returns the position of n among c's direct children, or -1.
func (c *Container) IndexOf(n Node) int {
	for i, child := range c.children {
		if child == n {
			return i
		}
	}
	return -1
}

// RemoveDescendant searches the subtree depth first and detaches target from
// whichever container holds it directly.
func (c *Container) RemoveDescendant(target Node) bool {
	for i, child := range c.children {
		if child == target {
			c.children = append(c.children[:i], c.children[i+1:]...)
			target.setParent(nil)
			return true
		}
		if sub, ok := child.(*Container); ok && sub.RemoveDescendant(target) {
			return true
		}
	}
	return false
}

// ReorderChild swaps n with the sibling delta positions away. A zero delta is
// an in-range swap with itself and reports true. Out of range targets leave
// the order untouched and report false.
func (c *Container) ReorderChild(n Node, delta int) bool {
	i := c.IndexOf(n)
	if i < 0 {
		return false
	}
	j := i + delta
	if j < 0 || j >= len(c.children) {
		return false
	}
	c.children[i], c.children[j] = c.children[j], c.children[i]
	return true
}

// Content is a leaf wrapping a caller-owned payload.
type Content[T any] struct {
	contentID int
	payload   T
	parent    *Container
}

func (c *Content[T]) Kind() Kind { return KindContent }
func (c *Content[T]) Parent() *Container { return c.parent }
func (c *Content[T]) Children() []Node { return nil }
func (c *Content[T]) ContentID() int { return c.contentID }
func (c *Content[T]) Payload() T { return c.payload }
func (c *Content[T]) setParent(p *Container) { c.parent = p }
func (c *Content[T]) leafID() int { return c.contentID }
func (c *Content[T]) String() string { return fmt.Sprintf("Content (id %d)", c.contentID) }

// contains reports whether n is root or sits below it.
func contains(root *Container, n Node) bool {
	for cur := n; cur != nil; {
		if cur == Node(root) {
			return true
		}
		p := cur.Parent()
		if p == nil {
			return false
		}
		cur = p
	}
	return false
}
