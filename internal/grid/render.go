package grid

import (
	"strings"

	"github.com/hyprpal/hyprgrid/internal/layout"
)

// Placement is the absolute frame computed for one content leaf.
type Placement struct {
	Frame     layout.Rect `json:"frame"`
	ContentID int         `json:"contentId"`
}

// Render maps the subtree rooted at n onto frame. Containers divide their own
// split axis evenly between children and pass the cross axis through; leaves
// occupy whatever frame they are given. Placements come back in tree order.
func Render(n Node, frame layout.Rect) []Placement {
	switch n.Kind() {
	case KindContent:
		return []Placement{{Frame: frame, ContentID: n.leafID()}}
	case KindContainer:
		c := n.(*Container)
		if len(c.children) == 0 {
			return nil
		}
		frames := layout.Split(frame, c.orientation, len(c.children))
		var out []Placement
		for i, child := range c.children {
			out = append(out, Render(child, frames[i])...)
		}
		return out
	default:
		return nil
	}
}

// Dump writes the indented tree representation of n, one line per node, with
// one '-' per depth level starting at depth.
func Dump(n Node, depth int) string {
	var b strings.Builder
	dump(&b, n, depth)
	return strings.TrimSuffix(b.String(), "\n")
}

func dump(b *strings.Builder, n Node, depth int) {
	b.WriteString(strings.Repeat("-", depth))
	b.WriteString(n.String())
	b.WriteByte('\n')
	if c, ok := n.(*Container); ok {
		for _, child := range c.children {
			dump(b, child, depth+1)
		}
	}
}
