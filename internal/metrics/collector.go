package metrics

import (
	"sort"
	"sync"
	"time"
)

// Operation names recorded by the engine.
const (
	OpCompute = "compute"
	OpAdd     = "content.add"
	OpRemove  = "content.remove"
	OpFocus   = "focus.move"
	OpReorder = "node.move"
	OpApply   = "apply"
)

// Collector aggregates opt-in counters for grid operations.
type Collector struct {
	mu      sync.RWMutex
	enabled bool
	started time.Time
	ops     map[string]*OperationMetrics
	changes Totals
}

// OperationMetrics captures per-operation counters tracked by the collector.
type OperationMetrics struct {
	Operation string    `json:"operation"`
	Count     uint64    `json:"count"`
	Noops     uint64    `json:"noops"`
	Errors    uint64    `json:"errors"`
	LastRun   time.Time `json:"lastRun,omitempty"`
	LastError time.Time `json:"lastError,omitempty"`
}

// Totals aggregates placement changes reported by computations.
type Totals struct {
	Added    uint64 `json:"added"`
	Modified uint64 `json:"modified"`
	Removed  uint64 `json:"removed"`
}

// Snapshot is the serializable view of the current metrics state.
type Snapshot struct {
	Enabled    bool               `json:"enabled"`
	Started    time.Time          `json:"started,omitempty"`
	Changes    Totals             `json:"changes"`
	Operations []OperationMetrics `json:"operations,omitempty"`
}

// NewCollector returns a collector with the provided opt-in state.
func NewCollector(enabled bool) *Collector {
	c := &Collector{}
	c.SetEnabled(enabled)
	return c
}

// Enabled reports whether collection is currently active.
func (c *Collector) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled toggles collection, resetting counters when enabling.
func (c *Collector) SetEnabled(enabled bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled == enabled {
		return
	}
	c.enabled = enabled
	c.changes = Totals{}
	if !enabled {
		c.ops = nil
		c.started = time.Time{}
		return
	}
	c.started = time.Now()
	c.ops = make(map[string]*OperationMetrics)
}

// RecordComputation counts one change computation and the size of its result.
func (c *Collector) RecordComputation(added, modified, removed int) {
	c.update(OpCompute, func(m *OperationMetrics, now time.Time) {
		m.Count++
		m.LastRun = now
		if added+modified+removed == 0 {
			m.Noops++
		}
		c.changes.Added += uint64(added)
		c.changes.Modified += uint64(modified)
		c.changes.Removed += uint64(removed)
	})
}

// RecordOperation counts a mutation or navigation. changed=false records a
// no-op such as an out-of-range move.
func (c *Collector) RecordOperation(op string, changed bool) {
	c.update(op, func(m *OperationMetrics, now time.Time) {
		m.Count++
		m.LastRun = now
		if !changed {
			m.Noops++
		}
	})
}

// RecordError counts a failed operation.
func (c *Collector) RecordError(op string) {
	c.update(op, func(m *OperationMetrics, now time.Time) {
		m.Errors++
		m.LastError = now
	})
}

func (c *Collector) update(op string, mutate func(*OperationMetrics, time.Time)) {
	if c == nil || mutate == nil {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	if c.ops == nil {
		c.ops = make(map[string]*OperationMetrics)
	}
	metrics, exists := c.ops[op]
	if !exists {
		metrics = &OperationMetrics{Operation: op}
		c.ops[op] = metrics
	}
	mutate(metrics, now)
}

// Snapshot returns the current counters for serialization or display.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{Enabled: c.enabled}
	if !c.enabled {
		return snap
	}
	snap.Started = c.started
	snap.Changes = c.changes
	if len(c.ops) == 0 {
		return snap
	}
	snap.Operations = make([]OperationMetrics, 0, len(c.ops))
	for _, metrics := range c.ops {
		if metrics == nil {
			continue
		}
		snap.Operations = append(snap.Operations, *metrics)
	}
	sort.Slice(snap.Operations, func(i, j int) bool {
		return snap.Operations[i].Operation < snap.Operations[j].Operation
	})
	return snap
}
