package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hyprpal/hyprgrid/internal/control"
	"github.com/hyprpal/hyprgrid/internal/grid"
	"github.com/hyprpal/hyprgrid/internal/metrics"
)

const (
	// defaultTimeout is used when the caller does not provide a context deadline.
	defaultTimeout = 3 * time.Second
)

// Client talks to the running hyprgrid daemon over its control socket.
type Client struct {
	socketPath string
}

type (
	// TreeResult is the grid dump and last computed placements.
	TreeResult = control.TreeResult
	// FocusStatus describes the focused node.
	FocusStatus = control.FocusStatus
	// MoveResult reports the outcome of a focus or reorder request.
	MoveResult = control.MoveResult
	// ChangeRecord mirrors one entry of the change history.
	ChangeRecord = control.ChangeRecord
	// HistoryResult wraps the change history.
	HistoryResult = control.HistoryResult
)

// New creates a client that connects to the provided socket path. When path is
// empty, the default runtime path is used.
func New(path string) (*Client, error) {
	if path == "" {
		var err error
		path, err = control.DefaultSocketPath()
		if err != nil {
			return nil, err
		}
	}
	return &Client{socketPath: path}, nil
}

// Tree retrieves the grid dump and current placements.
func (c *Client) Tree(ctx context.Context) (TreeResult, error) {
	var result TreeResult
	if err := c.do(ctx, control.Request{Action: control.ActionTree}, &result); err != nil {
		return TreeResult{}, err
	}
	return result, nil
}

// Focus retrieves the focused node.
func (c *Client) Focus(ctx context.Context) (FocusStatus, error) {
	var status FocusStatus
	if err := c.do(ctx, control.Request{Action: control.ActionFocusGet}, &status); err != nil {
		return FocusStatus{}, err
	}
	return status, nil
}

// SetFocus focuses the leaf for content id.
func (c *Client) SetFocus(ctx context.Context, id int) (FocusStatus, error) {
	var status FocusStatus
	req := control.Request{Action: control.ActionFocusSet, Params: map[string]any{"id": id}}
	if err := c.do(ctx, req, &status); err != nil {
		return FocusStatus{}, err
	}
	return status, nil
}

// FocusRoot focuses the root container.
func (c *Client) FocusRoot(ctx context.Context) (FocusStatus, error) {
	var status FocusStatus
	req := control.Request{Action: control.ActionFocusSet, Params: map[string]any{"root": true}}
	if err := c.do(ctx, req, &status); err != nil {
		return FocusStatus{}, err
	}
	return status, nil
}

// MoveFocus moves focus in the named direction.
func (c *Client) MoveFocus(ctx context.Context, direction string) (MoveResult, error) {
	return c.move(ctx, control.ActionFocusMove, direction)
}

// MoveNode swaps the focused node with its neighbour in the named direction.
func (c *Client) MoveNode(ctx context.Context, direction string) (MoveResult, error) {
	return c.move(ctx, control.ActionNodeMove, direction)
}

func (c *Client) move(ctx context.Context, action, direction string) (MoveResult, error) {
	if direction == "" {
		return MoveResult{}, errors.New("direction cannot be empty")
	}
	var result MoveResult
	req := control.Request{Action: action, Params: map[string]any{"direction": direction}}
	if err := c.do(ctx, req, &result); err != nil {
		return MoveResult{}, err
	}
	return result, nil
}

// AddContent registers content id under handle.
func (c *Client) AddContent(ctx context.Context, id int, handle string) error {
	req := control.Request{Action: control.ActionContentAdd, Params: map[string]any{"id": id, "handle": handle}}
	return c.do(ctx, req, nil)
}

// RemoveContent removes content id and reports whether it was known.
func (c *Client) RemoveContent(ctx context.Context, id int) (bool, error) {
	var result control.RemoveResult
	req := control.Request{Action: control.ActionContentRemove, Params: map[string]any{"id": id}}
	if err := c.do(ctx, req, &result); err != nil {
		return false, err
	}
	return result.Removed, nil
}

// Changes asks the daemon to compute and apply pending changes.
func (c *Client) Changes(ctx context.Context) (grid.ChangeSet, error) {
	var changes grid.ChangeSet
	if err := c.do(ctx, control.Request{Action: control.ActionChanges}, &changes); err != nil {
		return grid.ChangeSet{}, err
	}
	return changes, nil
}

// History retrieves the daemon's change history.
func (c *Client) History(ctx context.Context) (HistoryResult, error) {
	var result HistoryResult
	if err := c.do(ctx, control.Request{Action: control.ActionHistory}, &result); err != nil {
		return HistoryResult{}, err
	}
	return result, nil
}

// Metrics retrieves the daemon's metrics snapshot.
func (c *Client) Metrics(ctx context.Context) (metrics.Snapshot, error) {
	var snap metrics.Snapshot
	if err := c.do(ctx, control.Request{Action: control.ActionMetrics}, &snap); err != nil {
		return metrics.Snapshot{}, err
	}
	return snap, nil
}

// Reload asks the daemon to reload its configuration.
func (c *Client) Reload(ctx context.Context) error {
	return c.do(ctx, control.Request{Action: control.ActionReload}, nil)
}

func (c *Client) do(ctx context.Context, req control.Request, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("dial control socket: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	var resp control.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != control.StatusOK {
		if resp.Error == "" {
			resp.Error = "unknown control error"
		}
		return errors.New(resp.Error)
	}
	if out == nil || resp.Data == nil {
		return nil
	}
	data, err := json.Marshal(resp.Data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
