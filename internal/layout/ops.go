package layout

import (
	"fmt"
	"sync"
)

// Applier moves a content handle to an absolute frame on the host.
type Applier interface {
	Apply(handle string, frame Rect) error
}

// BatchApplier is implemented by appliers that can take a whole plan at once.
// A failed batch is treated as applying none of its moves.
type BatchApplier interface {
	ApplyBatch(moves []Move) error
}

// Move places one content handle.
type Move struct {
	ContentID int    `json:"contentId"`
	Handle    string `json:"handle"`
	Frame     Rect   `json:"frame"`
}

// Plan is an ordered collection of moves.
type Plan struct {
	Moves []Move
}

// Add appends a move.
func (p *Plan) Add(contentID int, handle string, frame Rect) {
	p.Moves = append(p.Moves, Move{ContentID: contentID, Handle: handle, Frame: frame})
}

// Merge appends the moves of other after this plan's moves.
func (p *Plan) Merge(other Plan) {
	p.Moves = append(p.Moves, other.Moves...)
}

// Execute applies the plan, batching when the applier supports it.
func (p Plan) Execute(a Applier) error {
	if len(p.Moves) == 0 {
		return nil
	}
	if batcher, ok := a.(BatchApplier); ok {
		if err := batcher.ApplyBatch(p.Moves); err != nil {
			return fmt.Errorf("apply batch of %d: %w", len(p.Moves), err)
		}
		return nil
	}
	for _, mv := range p.Moves {
		if err := a.Apply(mv.Handle, mv.Frame); err != nil {
			return fmt.Errorf("apply %s (content %d) to %s: %w", mv.Handle, mv.ContentID, mv.Frame, err)
		}
	}
	return nil
}

// Recorder is an Applier that remembers the last frame applied to each
// handle instead of touching any real window.
type Recorder struct {
	mu      sync.Mutex
	frames  map[string]Rect
	applied int
	batches int
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{frames: make(map[string]Rect)}
}

func (r *Recorder) Apply(handle string, frame Rect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames[handle] = frame
	r.applied++
	return nil
}

// ApplyBatch records every move of a plan under one lock.
func (r *Recorder) ApplyBatch(moves []Move) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mv := range moves {
		r.frames[mv.Handle] = mv.Frame
	}
	r.applied += len(moves)
	r.batches++
	return nil
}

// Frame returns the last frame applied to handle.
func (r *Recorder) Frame(handle string) (Rect, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	frame, ok := r.frames[handle]
	return frame, ok
}

// Forget drops a handle, used when its content goes away.
func (r *Recorder) Forget(handle string) {
	r.mu.Lock()
	delete(r.frames, handle)
	r.mu.Unlock()
}

// Applied returns how many moves were applied in total.
func (r *Recorder) Applied() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied
}

// Batches returns how many plans were applied as a single batch.
func (r *Recorder) Batches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches
}
