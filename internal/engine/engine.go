package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hyprpal/hyprgrid/internal/grid"
	"github.com/hyprpal/hyprgrid/internal/ipc"
	"github.com/hyprpal/hyprgrid/internal/layout"
	"github.com/hyprpal/hyprgrid/internal/metrics"
	"github.com/hyprpal/hyprgrid/internal/util"
)

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	*time.Ticker
}

func (t realTicker) C() <-chan time.Time {
	return t.Ticker.C
}

// forgetter is implemented by appliers that cache per-handle state.
type forgetter interface {
	Forget(handle string)
}

const defaultTickInterval = 250 * time.Millisecond

var errMalformedPayload = errors.New("malformed event payload")

// Options configures a new Engine.
type Options struct {
	Frame        layout.Rect
	Orientation  layout.Orientation
	DryRun       bool
	TickInterval time.Duration
	HistoryLimit int
	Metrics      *metrics.Collector
}

// FocusInfo describes the focused node for control clients.
type FocusInfo struct {
	Kind      string `json:"kind"`
	Node      string `json:"node"`
	ContentID int    `json:"contentId,omitempty"`
	Handle    string `json:"handle,omitempty"`
	Container string `json:"container,omitempty"`
}

// Engine serialises access to the layout grid, computes change sets on a
// ticker and pushes the resulting frames to the applier.
type Engine struct {
	applier layout.Applier
	logger  *util.Logger
	metrics *metrics.Collector

	mu       sync.Mutex
	grid     *grid.Grid[string]
	dryRun   bool
	interval time.Duration
	history  *changeLog
	last     grid.ChangeSet
	// moves from a failed apply, retried on the next tick
	pending map[int]layout.Move

	tickerFactory func(time.Duration) ticker
	now           func() time.Time
}

// New builds an engine around an empty grid covering opts.Frame.
func New(applier layout.Applier, logger *util.Logger, opts Options) *Engine {
	if logger == nil {
		logger = util.Discard()
	}
	interval := opts.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}
	e := &Engine{
		applier:  applier,
		logger:   logger,
		metrics:  opts.Metrics,
		dryRun:   opts.DryRun,
		interval: interval,
		history:  newChangeLog(opts.HistoryLimit),
		pending:  make(map[int]layout.Move),
		now:      time.Now,
	}
	e.grid = grid.New[string](opts.Frame, opts.Orientation, grid.WithLogger(logger.Named("grid")))
	e.grid.OnContentResizeNeeded(e.onChanges)
	e.grid.OnFocusMoved(e.onFocus)
	return e
}

// Run computes an initial change set, then applies events and ticks until
// the context is cancelled. A nil or closed events channel leaves the engine
// running on the ticker alone.
func (e *Engine) Run(ctx context.Context, events <-chan ipc.Event) error {
	if _, err := e.Tick(); err != nil {
		e.logger.Errorf("initial apply failed: %v", err)
	}
	tick := e.newTicker()
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C():
			if _, err := e.Tick(); err != nil {
				e.logger.Errorf("periodic apply failed: %v", err)
			}
		case ev, ok := <-events:
			if !ok {
				e.logger.Infof("event stream closed")
				events = nil
				continue
			}
			e.trace("event.received", map[string]any{
				"kind":    ev.Kind,
				"payload": ev.Payload,
			})
			if err := e.applyEvent(ev); err != nil {
				if errors.Is(err, errMalformedPayload) || errors.Is(err, grid.ErrDuplicateContent) {
					e.logger.Warnf("event %s ignored: %v", ev.Kind, err)
				} else {
					e.logger.Errorf("event %s failed: %v", ev.Kind, err)
				}
			}
		}
	}
}

func (e *Engine) newTicker() ticker {
	e.mu.Lock()
	interval := e.interval
	e.mu.Unlock()
	if e.tickerFactory != nil {
		return e.tickerFactory(interval)
	}
	return realTicker{time.NewTicker(interval)}
}

// HandleEvent applies a single event outside the Run loop.
func (e *Engine) HandleEvent(ev ipc.Event) error {
	return e.applyEvent(ev)
}

func (e *Engine) applyEvent(ev ipc.Event) error {
	switch ev.Kind {
	case ipc.KindAdd:
		id, handle, err := ipc.ParseAdd(ev.Payload)
		if err != nil {
			return fmt.Errorf("%w: %v", errMalformedPayload, err)
		}
		return e.AddContent(handle, id)
	case ipc.KindRemove:
		id, err := ipc.ParseID(ev.Payload)
		if err != nil {
			return fmt.Errorf("%w: %v", errMalformedPayload, err)
		}
		if !e.RemoveContent(id) {
			e.logger.Debugf("remove for unknown content %d", id)
		}
	case ipc.KindFocus:
		id, err := ipc.ParseID(ev.Payload)
		if err != nil {
			return fmt.Errorf("%w: %v", errMalformedPayload, err)
		}
		if !e.Focus(id) {
			e.logger.Debugf("focus for unknown content %d", id)
		}
	case ipc.KindMoveFocus:
		d, err := ipc.ParseDirection(ev.Payload)
		if err != nil {
			return fmt.Errorf("%w: %v", errMalformedPayload, err)
		}
		e.MoveFocus(d)
	case ipc.KindMove:
		d, err := ipc.ParseDirection(ev.Payload)
		if err != nil {
			return fmt.Errorf("%w: %v", errMalformedPayload, err)
		}
		e.MoveNode(d)
	case ipc.KindTick:
		_, err := e.Tick()
		return err
	default:
		e.trace("event.ignored", map[string]any{"kind": ev.Kind})
	}
	return nil
}

// AddContent appends a leaf for the content handle under the root.
func (e *Engine) AddContent(handle string, id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.grid.AddContainerForContent(handle, id); err != nil {
		e.metrics.RecordError(metrics.OpAdd)
		return err
	}
	e.metrics.RecordOperation(metrics.OpAdd, true)
	return nil
}

// RemoveContent detaches the leaf for id. It reports false for unknown ids.
func (e *Engine) RemoveContent(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	handle, err := e.grid.ContentByID(id)
	if err != nil {
		e.metrics.RecordOperation(metrics.OpRemove, false)
		return false
	}
	removed := e.grid.RemoveContainerForContent(id)
	e.metrics.RecordOperation(metrics.OpRemove, removed)
	delete(e.pending, id)
	if removed && !e.dryRun {
		if f, ok := e.applier.(forgetter); ok {
			f.Forget(handle)
		}
	}
	return removed
}

// Tick computes pending changes and executes the resulting plan unless the
// engine runs in dry-run mode. Moves that failed to apply on an earlier tick
// are retried ahead of the new ones. Clean grids return an empty change set.
func (e *Engine) Tick() (grid.ChangeSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	dirty := e.grid.Dirty()
	changes := e.grid.CalculateChanges()
	if !dirty && len(e.pending) == 0 {
		return changes, nil
	}
	if dirty {
		added, modified, removed := changes.Counts()
		e.metrics.RecordComputation(added, modified, removed)
	}
	if changes.Empty() && len(e.pending) == 0 {
		return changes, nil
	}

	fresh := e.planLocked(changes)
	plan := e.retryPlanLocked(fresh)
	plan.Merge(fresh)

	var record *ChangeRecord
	if !changes.Empty() {
		e.last = changes
		record = &ChangeRecord{Timestamp: e.now(), Changes: changes, Status: ChangeStatusApplied}
	}
	if e.dryRun || e.applier == nil {
		for _, mv := range plan.Moves {
			e.trace("dispatch.result", map[string]any{
				"contentId": mv.ContentID,
				"handle":    mv.Handle,
				"frame":     mv.Frame,
				"status":    "dry-run",
			})
		}
		if record != nil {
			record.Status = ChangeStatusDryRun
			e.history.record(*record)
		}
		return changes, nil
	}
	if err := plan.Execute(e.applier); err != nil {
		for _, mv := range plan.Moves {
			e.pending[mv.ContentID] = mv
		}
		e.metrics.RecordError(metrics.OpApply)
		if record != nil {
			record.Status = ChangeStatusError
			record.Error = err.Error()
			e.history.record(*record)
		}
		e.trace("dispatch.result", map[string]any{
			"moves":   len(plan.Moves),
			"pending": len(e.pending),
			"status":  "error",
			"error":   err.Error(),
		})
		return changes, err
	}
	e.metrics.RecordOperation(metrics.OpApply, len(plan.Moves) > 0)
	if record != nil {
		e.history.record(*record)
	}
	e.trace("dispatch.result", map[string]any{
		"moves":  len(plan.Moves),
		"status": "applied",
	})
	return changes, nil
}

// retryPlanLocked drains the pending moves, dropping any superseded by a
// fresh move for the same content.
func (e *Engine) retryPlanLocked(fresh layout.Plan) layout.Plan {
	var plan layout.Plan
	if len(e.pending) == 0 {
		return plan
	}
	for _, mv := range fresh.Moves {
		delete(e.pending, mv.ContentID)
	}
	ids := make([]int, 0, len(e.pending))
	for id := range e.pending {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		mv := e.pending[id]
		plan.Add(mv.ContentID, mv.Handle, mv.Frame)
		delete(e.pending, id)
	}
	return plan
}

func (e *Engine) planLocked(changes grid.ChangeSet) layout.Plan {
	var plan layout.Plan
	for _, group := range [][]grid.Placement{changes.NewContentPositions, changes.ModifiedContentPositions} {
		for _, p := range group {
			handle, err := e.grid.ContentByID(p.ContentID)
			if err != nil {
				e.logger.Warnf("placement for unknown content %d skipped", p.ContentID)
				continue
			}
			plan.Add(p.ContentID, handle, p.Frame)
		}
	}
	return plan
}

// Focus focuses the leaf for id.
func (e *Engine) Focus(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.SetFocusByID(id)
}

// FocusRoot focuses the root container.
func (e *Engine) FocusRoot() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.grid.SetFocus(e.grid.Root())
}

// MoveFocus moves focus in direction d.
func (e *Engine) MoveFocus(d layout.Direction) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	moved := e.grid.MoveFocus(d)
	e.metrics.RecordOperation(metrics.OpFocus, moved)
	return moved
}

// MoveNode swaps the focused node with its neighbour in direction d.
func (e *Engine) MoveNode(d layout.Direction) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	moved := e.grid.MoveNode(d)
	e.metrics.RecordOperation(metrics.OpReorder, moved)
	return moved
}

// Tree returns the textual dump of the grid.
func (e *Engine) Tree() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.String()
}

// Focused describes the focused node.
func (e *Engine) Focused() FocusInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return describeFocus(e.grid.FocusedNode())
}

func describeFocus(n grid.Node) FocusInfo {
	info := FocusInfo{Kind: n.Kind().String(), Node: n.String()}
	switch v := n.(type) {
	case *grid.Container:
		info.Container = v.ID()
	case *grid.Content[string]:
		info.ContentID = v.ContentID()
		info.Handle = v.Payload()
	}
	return info
}

// Snapshot returns the placements from the last computation.
func (e *Engine) Snapshot() []grid.Placement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.Snapshot()
}

// LastChanges returns the most recent non-empty change set.
func (e *Engine) LastChanges() grid.ChangeSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// History returns recorded change sets, oldest first.
func (e *Engine) History() []ChangeRecord {
	return e.history.snapshot()
}

// Len returns the number of managed contents.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.Len()
}

// SetFrame replaces the display rect. The next tick recomputes every
// placement when the frame changed.
func (e *Engine) SetFrame(frame layout.Rect) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.grid.Resize(frame)
}

// Frame returns the display rect.
func (e *Engine) Frame() layout.Rect {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.Frame()
}

// Orientation returns the root split orientation.
func (e *Engine) Orientation() layout.Orientation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.Root().Orientation()
}

// SetDryRun toggles dry-run mode.
func (e *Engine) SetDryRun(enabled bool) {
	e.mu.Lock()
	e.dryRun = enabled
	e.mu.Unlock()
}

// DryRun reports whether plans are executed.
func (e *Engine) DryRun() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dryRun
}

// Metrics returns the collector, which may be nil.
func (e *Engine) Metrics() *metrics.Collector {
	return e.metrics
}

func (e *Engine) onChanges(cs grid.ChangeSet) {
	if !e.logger.Enabled(util.LevelTrace) {
		return
	}
	added, modified, removed := cs.Counts()
	e.trace("changes.computed", map[string]any{
		"new":        added,
		"modified":   modified,
		"removed":    removed,
		"removedIds": cs.RemovedContentIDs,
	})
}

func (e *Engine) onFocus(n grid.Node) {
	if !e.logger.Enabled(util.LevelTrace) {
		return
	}
	e.trace("focus.moved", map[string]any{"node": n.String()})
}

func (e *Engine) trace(event string, fields map[string]any) {
	if e.logger == nil {
		return
	}
	e.logger.Tracef("%s %s", event, formatTraceFields(fields))
}

func formatTraceFields(fields map[string]any) string {
	if len(fields) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		val, err := json.Marshal(fields[k])
		if err != nil {
			b.WriteString(strconv.Quote(fmt.Sprintf("<marshal error: %v>", err)))
			continue
		}
		b.Write(val)
	}
	b.WriteByte('}')
	return b.String()
}
