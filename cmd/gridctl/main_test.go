package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyprpal/hyprgrid/internal/control/client"
	"github.com/hyprpal/hyprgrid/internal/grid"
	"github.com/hyprpal/hyprgrid/internal/layout"
	"github.com/hyprpal/hyprgrid/internal/metrics"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestRunCheckSuccess(t *testing.T) {
	cfg := `display:
  width: 1920
  height: 1080
orientation: vertical
`
	path := writeTempConfig(t, cfg)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	if err := runCheck([]string{"--config", path}, &stdout, &stderr); err != nil {
		t.Fatalf("runCheck returned error: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != "Configuration OK" {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}
	if strings.TrimSpace(stderr.String()) != "" {
		t.Fatalf("expected no stderr, got %q", stderr.String())
	}
}

func TestRunCheckFailure(t *testing.T) {
	cfg := `display:
  width: -5
  height: 0
orientation: diagonal
historyLimit: -1
`
	path := writeTempConfig(t, cfg)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	err := runCheck([]string{"--config", path}, &stdout, &stderr)
	if err == nil {
		t.Fatalf("expected error from runCheck")
	}
	if strings.TrimSpace(stdout.String()) != "" {
		t.Fatalf("expected no stdout, got %q", stdout.String())
	}
	output := stderr.String()
	for _, want := range []string{
		"Configuration has 4 issue(s)",
		"display.width: must be positive, got -5",
		"display.height: must be positive, got 0",
		"orientation: must be horizontal or vertical",
		"historyLimit: cannot be negative",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("missing %q in output: %q", want, output)
		}
	}
}

type fakeClient struct {
	tree     client.TreeResult
	focus    client.FocusStatus
	move     client.MoveResult
	changes  grid.ChangeSet
	history  client.HistoryResult
	err      error
	added    map[int]string
	lastDir  string
	setFocus int
}

func (f *fakeClient) Tree(context.Context) (client.TreeResult, error) { return f.tree, f.err }
func (f *fakeClient) Focus(context.Context) (client.FocusStatus, error) {
	return f.focus, f.err
}
func (f *fakeClient) SetFocus(_ context.Context, id int) (client.FocusStatus, error) {
	f.setFocus = id
	return f.focus, f.err
}
func (f *fakeClient) FocusRoot(context.Context) (client.FocusStatus, error) {
	return f.focus, f.err
}
func (f *fakeClient) MoveFocus(_ context.Context, direction string) (client.MoveResult, error) {
	f.lastDir = direction
	return f.move, f.err
}
func (f *fakeClient) MoveNode(_ context.Context, direction string) (client.MoveResult, error) {
	f.lastDir = direction
	return f.move, f.err
}
func (f *fakeClient) AddContent(_ context.Context, id int, handle string) error {
	if f.added == nil {
		f.added = make(map[int]string)
	}
	f.added[id] = handle
	return f.err
}
func (f *fakeClient) RemoveContent(context.Context, int) (bool, error) { return false, f.err }
func (f *fakeClient) Changes(context.Context) (grid.ChangeSet, error)  { return f.changes, f.err }
func (f *fakeClient) History(context.Context) (client.HistoryResult, error) {
	return f.history, f.err
}
func (f *fakeClient) Metrics(context.Context) (metrics.Snapshot, error) {
	return metrics.Snapshot{}, f.err
}
func (f *fakeClient) Reload(context.Context) error { return f.err }

func TestDispatchTreePrintsPlacements(t *testing.T) {
	cli := &fakeClient{tree: client.TreeResult{
		Tree:       "Grid\n-SplitContainer (HORIZONTAL)\n--Content (id 1)",
		Placements: []grid.Placement{{Frame: layout.Rect{Width: 5, Height: 3}, ContentID: 1}},
	}}
	var out bytes.Buffer
	if err := dispatch(context.Background(), cli, []string{"tree"}, &out); err != nil {
		t.Fatalf("dispatch returned error: %v", err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "Grid\n-SplitContainer (HORIZONTAL)\n--Content (id 1)\n") {
		t.Fatalf("unexpected tree output: %q", got)
	}
	if !strings.Contains(got, "5x3 @ 0,0") {
		t.Fatalf("expected placement geometry, got %q", got)
	}
}

func TestDispatchFocusAndMove(t *testing.T) {
	cli := &fakeClient{
		focus: client.FocusStatus{Node: "Content (id 2)", ContentID: 2, Handle: "0xb"},
		move:  client.MoveResult{Moved: false, Focus: client.FocusStatus{Node: "Content (id 2)"}},
	}
	var out bytes.Buffer
	if err := dispatch(context.Background(), cli, []string{"focus", "set", "2"}, &out); err != nil {
		t.Fatalf("focus set returned error: %v", err)
	}
	if cli.setFocus != 2 || !strings.Contains(out.String(), "Focused: Content (id 2) [0xb]") {
		t.Fatalf("unexpected focus output %q (id %d)", out.String(), cli.setFocus)
	}

	out.Reset()
	if err := dispatch(context.Background(), cli, []string{"move", "east"}, &out); err != nil {
		t.Fatalf("move returned error: %v", err)
	}
	if cli.lastDir != "east" || !strings.Contains(out.String(), "No move change") {
		t.Fatalf("unexpected move output %q", out.String())
	}
}

func TestDispatchAddValidatesID(t *testing.T) {
	cli := &fakeClient{}
	var out bytes.Buffer
	if err := dispatch(context.Background(), cli, []string{"add", "x", "0xa"}, &out); err == nil {
		t.Fatalf("expected invalid id error")
	}
	if err := dispatch(context.Background(), cli, []string{"add", "3", "0xa"}, &out); err != nil {
		t.Fatalf("add returned error: %v", err)
	}
	if cli.added[3] != "0xa" {
		t.Fatalf("expected content 3 to be added, got %v", cli.added)
	}
}

func TestDispatchTickWritesJSON(t *testing.T) {
	cli := &fakeClient{changes: grid.ChangeSet{
		NewContentPositions:      []grid.Placement{},
		ModifiedContentPositions: []grid.Placement{},
		RemovedContentIDs:        []string{"4"},
	}}
	var out bytes.Buffer
	if err := dispatch(context.Background(), cli, []string{"tick"}, &out); err != nil {
		t.Fatalf("tick returned error: %v", err)
	}
	if !strings.Contains(out.String(), `"removedContentIds": [`) || !strings.Contains(out.String(), `"newContentPositions": []`) {
		t.Fatalf("unexpected tick output %s", out.String())
	}
}

func TestDispatchUnknownSubcommand(t *testing.T) {
	err := dispatch(context.Background(), &fakeClient{}, []string{"explode"}, &bytes.Buffer{})
	if !errors.Is(err, errUnknownSubcommand) {
		t.Fatalf("expected unknown subcommand error, got %v", err)
	}
}
