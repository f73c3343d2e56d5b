package control

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hyprpal/hyprgrid/internal/engine"
	"github.com/hyprpal/hyprgrid/internal/grid"
	"github.com/hyprpal/hyprgrid/internal/layout"
	"github.com/hyprpal/hyprgrid/internal/metrics"
	"github.com/hyprpal/hyprgrid/internal/util"
)

func newTestServer(t *testing.T, reload func(string) error) (*Server, *engine.Engine, *layout.Recorder) {
	t.Helper()
	rec := layout.NewRecorder()
	eng := engine.New(rec, util.Discard(), engine.Options{
		Frame:       layout.Rect{Width: 100, Height: 50},
		Orientation: layout.Horizontal,
		Metrics:     metrics.NewCollector(true),
	})
	srv := NewServerAt(t.TempDir()+"/control.sock", eng, util.Discard(), reload)
	return srv, eng, rec
}

// roundTrip sends req over an in-memory pipe and decodes the response data
// into out when it is non-nil.
func roundTrip(t *testing.T, srv *Server, req Request, out any) Response {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	var resp Response
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := json.NewEncoder(clientConn).Encode(req); err != nil {
			t.Errorf("encode request: %v", err)
			return
		}
		if err := json.NewDecoder(clientConn).Decode(&resp); err != nil {
			t.Errorf("decode response: %v", err)
		}
	}()

	srv.handle(context.Background(), serverConn)
	wg.Wait()

	if out != nil && resp.Data != nil {
		data, err := json.Marshal(resp.Data)
		if err != nil {
			t.Fatalf("marshal data: %v", err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("unmarshal data: %v", err)
		}
	}
	return resp
}

func TestContentAddThenChangesAppliesFrames(t *testing.T) {
	srv, _, rec := newTestServer(t, nil)

	for _, params := range []map[string]any{
		{"id": 1, "handle": "0xa"},
		{"id": 2, "handle": "0xb"},
	} {
		resp := roundTrip(t, srv, Request{Action: ActionContentAdd, Params: params}, nil)
		if resp.Status != StatusOK {
			t.Fatalf("expected ok status, got %s (error=%s)", resp.Status, resp.Error)
		}
	}

	var changes grid.ChangeSet
	resp := roundTrip(t, srv, Request{Action: ActionChanges}, &changes)
	if resp.Status != StatusOK {
		t.Fatalf("expected ok status, got %s (error=%s)", resp.Status, resp.Error)
	}
	want := []grid.Placement{
		{Frame: layout.Rect{X: 0, Y: 0, Width: 100, Height: 25}, ContentID: 1},
		{Frame: layout.Rect{X: 0, Y: 25, Width: 100, Height: 25}, ContentID: 2},
	}
	if diff := cmp.Diff(want, changes.NewContentPositions); diff != "" {
		t.Fatalf("unexpected new placements (-want +got):\n%s", diff)
	}
	if rec.Applied() != 2 {
		t.Fatalf("expected 2 applied frames, got %d", rec.Applied())
	}

	var tree TreeResult
	roundTrip(t, srv, Request{Action: ActionTree}, &tree)
	wantTree := "Grid\n-SplitContainer (HORIZONTAL)\n--Content (id 1)\n--Content (id 2)"
	if tree.Tree != wantTree {
		t.Fatalf("unexpected tree %q", tree.Tree)
	}
	if tree.Contents != 2 || len(tree.Placements) != 2 {
		t.Fatalf("unexpected tree result: %+v", tree)
	}
}

func TestContentAddRejectsDuplicate(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	params := map[string]any{"id": 3, "handle": "0xa"}
	roundTrip(t, srv, Request{Action: ActionContentAdd, Params: params}, nil)
	resp := roundTrip(t, srv, Request{Action: ActionContentAdd, Params: params}, nil)
	if resp.Status != StatusError || !strings.Contains(resp.Error, "already registered") {
		t.Fatalf("expected duplicate rejection, got %+v", resp)
	}
}

func TestFocusSetAndMove(t *testing.T) {
	srv, eng, _ := newTestServer(t, nil)
	for id := 1; id <= 2; id++ {
		if err := eng.AddContent("h", id); err != nil {
			t.Fatalf("AddContent: %v", err)
		}
	}

	var focus FocusStatus
	resp := roundTrip(t, srv, Request{Action: ActionFocusSet, Params: map[string]any{"id": 1}}, &focus)
	if resp.Status != StatusOK || focus.ContentID != 1 {
		t.Fatalf("expected focus on 1, got %+v (%+v)", focus, resp)
	}

	var move MoveResult
	roundTrip(t, srv, Request{Action: ActionFocusMove, Params: map[string]any{"direction": "south"}}, &move)
	if !move.Moved || move.Focus.ContentID != 2 {
		t.Fatalf("expected focus to move to 2, got %+v", move)
	}

	move = MoveResult{}
	roundTrip(t, srv, Request{Action: ActionFocusMove, Params: map[string]any{"direction": "east"}}, &move)
	if move.Moved {
		t.Fatalf("expected cross-axis move to be ignored, got %+v", move)
	}

	move = MoveResult{}
	roundTrip(t, srv, Request{Action: ActionNodeMove, Params: map[string]any{"direction": "north"}}, &move)
	if !move.Moved {
		t.Fatalf("expected node move to succeed, got %+v", move)
	}
	if !strings.Contains(eng.Tree(), "--Content (id 2)\n--Content (id 1)") {
		t.Fatalf("expected swapped order, got %q", eng.Tree())
	}

	focus = FocusStatus{}
	roundTrip(t, srv, Request{Action: ActionFocusSet, Params: map[string]any{"root": true}}, &focus)
	if focus.Container != "container-0" {
		t.Fatalf("expected root focus, got %+v", focus)
	}
}

func TestRequestValidation(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	cases := []struct {
		name string
		req  Request
		want string
	}{
		{"unknown action", Request{Action: "explode"}, "unknown action"},
		{"missing id", Request{Action: ActionContentRemove}, "missing id"},
		{"fractional id", Request{Action: ActionFocusSet, Params: map[string]any{"id": 1.5}}, "integer"},
		{"unknown focus", Request{Action: ActionFocusSet, Params: map[string]any{"id": 9}}, "unknown content"},
		{"missing handle", Request{Action: ActionContentAdd, Params: map[string]any{"id": 4}}, "missing handle"},
		{"blank handle", Request{Action: ActionContentAdd, Params: map[string]any{"id": 4, "handle": "  "}}, "missing handle"},
		{"missing direction", Request{Action: ActionFocusMove}, "missing direction"},
		{"bad direction", Request{Action: ActionNodeMove, Params: map[string]any{"direction": "sideways"}}, "sideways"},
		{"reload unsupported", Request{Action: ActionReload}, "not supported"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := roundTrip(t, srv, tc.req, nil)
			if resp.Status != StatusError || !strings.Contains(resp.Error, tc.want) {
				t.Fatalf("expected error containing %q, got %+v", tc.want, resp)
			}
		})
	}
}

func TestHistoryMetricsAndReload(t *testing.T) {
	var reasons []string
	srv, eng, _ := newTestServer(t, func(reason string) error {
		reasons = append(reasons, reason)
		return nil
	})
	if err := eng.AddContent("0xa", 1); err != nil {
		t.Fatalf("AddContent: %v", err)
	}
	if _, err := eng.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	var removed RemoveResult
	roundTrip(t, srv, Request{Action: ActionContentRemove, Params: map[string]any{"id": 1}}, &removed)
	if !removed.Removed {
		t.Fatalf("expected removal to succeed")
	}

	var history HistoryResult
	roundTrip(t, srv, Request{Action: ActionHistory}, &history)
	if len(history.Records) != 1 || history.Records[0].Status != "applied" {
		t.Fatalf("unexpected history: %+v", history)
	}

	var snap metrics.Snapshot
	roundTrip(t, srv, Request{Action: ActionMetrics}, &snap)
	if !snap.Enabled || snap.Changes.Added != 1 {
		t.Fatalf("unexpected metrics snapshot: %+v", snap)
	}

	resp := roundTrip(t, srv, Request{Action: ActionReload}, nil)
	if resp.Status != StatusOK {
		t.Fatalf("expected reload ok, got %+v", resp)
	}
	if diff := cmp.Diff([]string{"control request"}, reasons); diff != "" {
		t.Fatalf("unexpected reload reasons (-want +got):\n%s", diff)
	}
}

func TestIntParam(t *testing.T) {
	if got, err := intParam(map[string]any{"id": float64(4)}, "id"); err != nil || got != 4 {
		t.Fatalf("expected 4, got %d (%v)", got, err)
	}
	if _, err := intParam(map[string]any{"id": "4"}, "id"); err == nil {
		t.Fatalf("expected error for string id")
	}
}
