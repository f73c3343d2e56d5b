// Package grid maintains a tree of split containers and content leaves,
// computes absolute frames for every leaf and reports what changed between
// computations.
package grid

import (
	"errors"
	"fmt"

	"github.com/hyprpal/hyprgrid/internal/event"
	"github.com/hyprpal/hyprgrid/internal/layout"
	"github.com/hyprpal/hyprgrid/internal/util"
)

var (
	// ErrDuplicateContent is returned when a content id is already registered.
	ErrDuplicateContent = errors.New("content id already registered")
	// ErrUnknownContent is returned when a content id is not registered.
	ErrUnknownContent = errors.New("unknown content id")
)

// Grid owns the layout tree for one display rectangle. It is not safe for
// concurrent use.
type Grid[T any] struct {
	root     *Container
	frame    layout.Rect
	registry map[int]*Content[T]
	snapshot map[int]Placement
	dirty    bool
	focused  Node

	containerSeq int
	logger       *util.Logger

	resizeNeeded *event.Event[ChangeSet]
	focusMoved   *event.Event[Node]
}

// Option customises a Grid at construction.
type Option func(*options)

type options struct {
	logger *util.Logger
}

// WithLogger routes grid diagnostics to logger.
func WithLogger(logger *util.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New returns an empty grid covering frame whose root container splits with
// orientation. Focus starts on the root.
func New[T any](frame layout.Rect, orientation layout.Orientation, opts ...Option) *Grid[T] {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = util.Discard()
	}
	g := &Grid[T]{
		frame:        frame,
		registry:     make(map[int]*Content[T]),
		snapshot:     make(map[int]Placement),
		logger:       logger,
		resizeNeeded: event.New[ChangeSet]("content-resize-needed"),
		focusMoved:   event.New[Node]("focus-moved"),
	}
	g.root = newContainer(g.nextContainerID(), orientation)
	g.focused = g.root
	return g
}

func (g *Grid[T]) nextContainerID() string {
	id := fmt.Sprintf("container-%d", g.containerSeq)
	g.containerSeq++
	return id
}

// Root returns the top-level split container.
func (g *Grid[T]) Root() *Container {
	return g.root
}

// Frame returns the display rectangle.
func (g *Grid[T]) Frame() layout.Rect {
	return g.frame
}

// Dirty reports whether the tree changed since the last computation.
func (g *Grid[T]) Dirty() bool {
	return g.dirty
}

// Len returns the number of registered content leaves.
func (g *Grid[T]) Len() int {
	return len(g.registry)
}

// Resize replaces the display rectangle. Every placement is recomputed on the
// next CalculateChanges.
func (g *Grid[T]) Resize(frame layout.Rect) {
	if frame == g.frame {
		return
	}
	g.logger.Debugf("display resized from %s to %s", g.frame, frame)
	g.frame = frame
	g.dirty = true
}

// AddContainerForContent wraps payload in a new leaf appended to the root.
func (g *Grid[T]) AddContainerForContent(payload T, contentID int) (*Content[T], error) {
	if _, exists := g.registry[contentID]; exists {
		g.logger.Warnf("content %d already registered; ignoring add", contentID)
		return nil, fmt.Errorf("add content %d: %w", contentID, ErrDuplicateContent)
	}
	leaf := &Content[T]{contentID: contentID, payload: payload}
	g.registry[contentID] = leaf
	g.root.AddChild(leaf)
	g.dirty = true
	g.logger.Debugf("content %d added", contentID)
	return leaf, nil
}

// RemoveContainerForContent detaches the leaf registered under contentID.
// Unknown ids are a no-op. If the leaf held focus, focus moves to its parent.
func (g *Grid[T]) RemoveContainerForContent(contentID int) bool {
	leaf, ok := g.registry[contentID]
	if !ok {
		g.logger.Debugf("content %d not registered; nothing to remove", contentID)
		return false
	}
	parent := leaf.Parent()
	delete(g.registry, contentID)
	if !g.root.RemoveDescendant(leaf) {
		g.logger.Warnf("content %d was registered but not in the tree", contentID)
		return false
	}
	g.dirty = true
	g.logger.Debugf("content %d removed", contentID)
	if !contains(g.root, g.focused) {
		if parent == nil {
			parent = g.root
		}
		g.setFocused(parent)
	}
	return true
}

// ContentByID returns the payload registered under contentID.
func (g *Grid[T]) ContentByID(contentID int) (T, error) {
	leaf, ok := g.registry[contentID]
	if !ok {
		var zero T
		return zero, fmt.Errorf("content %d: %w", contentID, ErrUnknownContent)
	}
	return leaf.payload, nil
}

// MustContentByID is ContentByID for callers that only ask about ids they
// know are registered. It panics otherwise.
func (g *Grid[T]) MustContentByID(contentID int) T {
	payload, err := g.ContentByID(contentID)
	if err != nil {
		panic(err)
	}
	return payload
}

// CalculateChanges renders the tree when it is dirty and reports the
// difference from the previous rendering. A clean grid returns an empty set
// without rendering or notifying listeners.
func (g *Grid[T]) CalculateChanges() ChangeSet {
	if !g.dirty {
		return emptyChangeSet()
	}
	rendered := Render(g.root, g.frame)
	cs, next := Diff(g.snapshot, rendered)
	g.snapshot = next
	g.dirty = false
	added, modified, removed := cs.Counts()
	g.logger.Debugf("changes computed: %d new, %d modified, %d removed", added, modified, removed)
	g.resizeNeeded.Fire(cs)
	return cs
}

// Snapshot returns the placements from the last computation in tree order.
func (g *Grid[T]) Snapshot() []Placement {
	out := make([]Placement, 0, len(g.snapshot))
	for _, p := range Render(g.root, g.frame) {
		if stored, ok := g.snapshot[p.ContentID]; ok {
			out = append(out, stored)
		}
	}
	return out
}

// OnContentResizeNeeded registers fn for every non-trivial computation.
func (g *Grid[T]) OnContentResizeNeeded(fn func(ChangeSet)) event.ListenerID {
	return g.resizeNeeded.AddListener(fn)
}

// RemoveContentResizeListener unregisters a listener added with
// OnContentResizeNeeded.
func (g *Grid[T]) RemoveContentResizeListener(id event.ListenerID) bool {
	return g.resizeNeeded.RemoveListener(id)
}

// OnFocusMoved registers fn for focus changes.
func (g *Grid[T]) OnFocusMoved(fn func(Node)) event.ListenerID {
	return g.focusMoved.AddListener(fn)
}

// RemoveFocusListener unregisters a listener added with OnFocusMoved.
func (g *Grid[T]) RemoveFocusListener(id event.ListenerID) bool {
	return g.focusMoved.RemoveListener(id)
}

// String dumps the tree, one node per line.
func (g *Grid[T]) String() string {
	return "Grid\n" + Dump(g.root, 1)
}
