package control

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/hyprpal/hyprgrid/internal/grid"
	"github.com/hyprpal/hyprgrid/internal/layout"
)

const (
	// SocketFileName is the filename of the control socket within the runtime dir.
	SocketFileName = "control.sock"

	// Action names supported by the control protocol.
	ActionTree          = "tree"
	ActionFocusGet      = "focus.get"
	ActionFocusSet      = "focus.set"
	ActionFocusMove     = "focus.move"
	ActionNodeMove      = "node.move"
	ActionContentAdd    = "content.add"
	ActionContentRemove = "content.remove"
	ActionChanges       = "changes"
	ActionHistory       = "history"
	ActionMetrics       = "metrics"
	ActionReload        = "reload"

	// Response statuses.
	StatusOK    = "ok"
	StatusError = "error"
)

// Request represents a control API request.
type Request struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// Response represents a control API response.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// TreeResult is the grid dump together with the last computed placements.
type TreeResult struct {
	Tree        string           `json:"tree"`
	Orientation string           `json:"orientation"`
	Frame       layout.Rect      `json:"frame"`
	Contents    int              `json:"contents"`
	DryRun      bool             `json:"dryRun"`
	Placements  []grid.Placement `json:"placements"`
}

// FocusStatus describes the focused node.
type FocusStatus struct {
	Kind      string `json:"kind"`
	Node      string `json:"node"`
	ContentID int    `json:"contentId,omitempty"`
	Handle    string `json:"handle,omitempty"`
	Container string `json:"container,omitempty"`
}

// MoveResult reports whether a focus or reorder request changed anything and
// where focus ended up.
type MoveResult struct {
	Moved bool        `json:"moved"`
	Focus FocusStatus `json:"focus"`
}

// RemoveResult reports whether a content id was known.
type RemoveResult struct {
	Removed bool `json:"removed"`
}

// ChangeRecord mirrors one entry of the daemon's change history.
type ChangeRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Status    string         `json:"status"`
	Changes   grid.ChangeSet `json:"changes"`
	Error     string         `json:"error,omitempty"`
}

// HistoryResult wraps the daemon's change history, oldest first.
type HistoryResult struct {
	Records []ChangeRecord `json:"records"`
}

// DefaultSocketPath returns the expected location of the hyprgrid control socket.
func DefaultSocketPath() (string, error) {
	if env := os.Getenv("HYPRGRID_CONTROL_SOCKET"); env != "" {
		return env, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	base := runtimeDir
	if base == "" {
		base = os.TempDir()
		if base == "" {
			return "", errors.New("no runtime directory available")
		}
	}
	return filepath.Join(base, "hyprgrid", SocketFileName), nil
}
