package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hyprpal/hyprgrid/internal/engine"
	"github.com/hyprpal/hyprgrid/internal/layout"
	"github.com/hyprpal/hyprgrid/internal/util"
)

// Server hosts the hyprgrid control socket and serves requests.
type Server struct {
	engine     *engine.Engine
	logger     *util.Logger
	reload     func(reason string) error
	socketPath string

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new control server on the default socket path.
func NewServer(eng *engine.Engine, logger *util.Logger, reload func(reason string) error) (*Server, error) {
	path, err := DefaultSocketPath()
	if err != nil {
		return nil, err
	}
	return NewServerAt(path, eng, logger, reload), nil
}

// NewServerAt creates a control server bound to path.
func NewServerAt(path string, eng *engine.Engine, logger *util.Logger, reload func(reason string) error) *Server {
	if logger == nil {
		logger = util.Discard()
	}
	return &Server{
		engine:     eng,
		logger:     logger,
		reload:     reload,
		socketPath: path,
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Serve listens on the control socket until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.prepareSocket(); err != nil {
		return err
	}
	s.logger.Infof("control server listening on %s", s.socketPath)
	defer s.cleanup()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
	}()

	for {
		conn, err := s.accept(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Errorf("control accept error: %v", err)
			continue
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) accept(ctx context.Context) (net.Conn, error) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return nil, context.Canceled
	}
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}

func (s *Server) prepareSocket() error {
	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create control dir: %w", err)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("chmod control socket: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

func (s *Server) cleanup() {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()
	if listener != nil {
		listener.Close()
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warnf("remove control socket: %v", err)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	var req Request
	if err := dec.Decode(&req); err != nil {
		s.writeError(conn, fmt.Errorf("decode request: %w", err))
		return
	}
	s.logger.Debugf("control request %s", req.Action)
	switch req.Action {
	case ActionTree:
		s.handleTree(conn)
	case ActionFocusGet:
		s.writeOK(conn, focusStatus(s.engine.Focused()))
	case ActionFocusSet:
		s.handleFocusSet(conn, req.Params)
	case ActionFocusMove:
		s.handleMove(conn, req.Params, s.engine.MoveFocus)
	case ActionNodeMove:
		s.handleMove(conn, req.Params, s.engine.MoveNode)
	case ActionContentAdd:
		s.handleContentAdd(conn, req.Params)
	case ActionContentRemove:
		s.handleContentRemove(conn, req.Params)
	case ActionChanges:
		s.handleChanges(conn)
	case ActionHistory:
		s.handleHistory(conn)
	case ActionMetrics:
		s.writeOK(conn, s.engine.Metrics().Snapshot())
	case ActionReload:
		s.handleReload(conn)
	default:
		s.writeError(conn, fmt.Errorf("unknown action %q", req.Action))
	}
}

func (s *Server) handleTree(conn net.Conn) {
	result := TreeResult{
		Tree:        s.engine.Tree(),
		Orientation: s.engine.Orientation().String(),
		Frame:       s.engine.Frame(),
		Contents:    s.engine.Len(),
		DryRun:      s.engine.DryRun(),
		Placements:  s.engine.Snapshot(),
	}
	s.writeOK(conn, result)
}

func (s *Server) handleFocusSet(conn net.Conn, params map[string]any) {
	if root, _ := params["root"].(bool); root {
		s.engine.FocusRoot()
		s.writeOK(conn, focusStatus(s.engine.Focused()))
		return
	}
	id, err := intParam(params, "id")
	if err != nil {
		s.writeError(conn, err)
		return
	}
	if !s.engine.Focus(id) {
		s.writeError(conn, fmt.Errorf("unknown content id %d", id))
		return
	}
	s.writeOK(conn, focusStatus(s.engine.Focused()))
}

func (s *Server) handleMove(conn net.Conn, params map[string]any, move func(layout.Direction) bool) {
	raw, _ := params["direction"].(string)
	if raw == "" {
		s.writeError(conn, errors.New("missing direction"))
		return
	}
	d, err := layout.ParseDirection(raw)
	if err != nil {
		s.writeError(conn, err)
		return
	}
	moved := move(d)
	s.writeOK(conn, MoveResult{Moved: moved, Focus: focusStatus(s.engine.Focused())})
}

func (s *Server) handleContentAdd(conn net.Conn, params map[string]any) {
	id, err := intParam(params, "id")
	if err != nil {
		s.writeError(conn, err)
		return
	}
	handle, _ := params["handle"].(string)
	handle = strings.TrimSpace(handle)
	if handle == "" {
		s.writeError(conn, errors.New("missing handle"))
		return
	}
	if err := s.engine.AddContent(handle, id); err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, nil)
}

func (s *Server) handleContentRemove(conn net.Conn, params map[string]any) {
	id, err := intParam(params, "id")
	if err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, RemoveResult{Removed: s.engine.RemoveContent(id)})
}

func (s *Server) handleChanges(conn net.Conn) {
	changes, err := s.engine.Tick()
	if err != nil {
		s.logger.Errorf("apply after control request failed: %v", err)
		s.writeError(conn, fmt.Errorf("apply changes: %w", err))
		return
	}
	s.writeOK(conn, changes)
}

func (s *Server) handleHistory(conn net.Conn) {
	history := s.engine.History()
	result := HistoryResult{Records: make([]ChangeRecord, 0, len(history))}
	for _, entry := range history {
		result.Records = append(result.Records, ChangeRecord{
			Timestamp: entry.Timestamp,
			Status:    string(entry.Status),
			Changes:   entry.Changes,
			Error:     entry.Error,
		})
	}
	s.writeOK(conn, result)
}

func (s *Server) handleReload(conn net.Conn) {
	if s.reload == nil {
		s.writeError(conn, errors.New("reload not supported"))
		return
	}
	if err := s.reload("control request"); err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, nil)
}

func focusStatus(info engine.FocusInfo) FocusStatus {
	return FocusStatus{
		Kind:      info.Kind,
		Node:      info.Node,
		ContentID: info.ContentID,
		Handle:    info.Handle,
		Container: info.Container,
	}
}

// intParam reads an integral JSON number from params.
func intParam(params map[string]any, key string) (int, error) {
	raw, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%s must be an integer, got %v", key, v)
		}
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, raw)
	}
}

func (s *Server) writeOK(conn net.Conn, data any) {
	resp := Response{Status: StatusOK}
	if data != nil {
		resp.Data = data
	}
	_ = json.NewEncoder(conn).Encode(resp)
}

func (s *Server) writeError(conn net.Conn, err error) {
	resp := Response{Status: StatusError}
	if err != nil {
		resp.Error = err.Error()
	}
	_ = json.NewEncoder(conn).Encode(resp)
}
