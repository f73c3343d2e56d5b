package tui

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hyprpal/hyprgrid/internal/control/client"
	"github.com/hyprpal/hyprgrid/internal/grid"
)

const defaultRefresh = 500 * time.Millisecond

// Source is the subset of the control client the dashboard polls.
type Source interface {
	Tree(ctx context.Context) (client.TreeResult, error)
	Focus(ctx context.Context) (client.FocusStatus, error)
	History(ctx context.Context) (client.HistoryResult, error)
}

// Renderer periodically polls the daemon and renders a textual dashboard.
type Renderer struct {
	Client  Source
	Writer  io.Writer
	Refresh time.Duration
}

// New returns a renderer configured with sensible defaults.
func New(cli Source, w io.Writer) *Renderer {
	return &Renderer{Client: cli, Writer: w, Refresh: defaultRefresh}
}

// Run starts the render loop until the context is cancelled.
func (r *Renderer) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.Writer == nil {
		r.Writer = os.Stdout
	}
	if r.Client == nil {
		return fmt.Errorf("tui renderer requires a control client")
	}

	refresh := r.Refresh
	if refresh <= 0 {
		refresh = defaultRefresh
	}

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	fmt.Fprint(r.Writer, "\033[?25l")
	defer fmt.Fprint(r.Writer, "\033[?25h")

	r.render(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.render(ctx)
		}
	}
}

func (r *Renderer) render(ctx context.Context) {
	var buf bytes.Buffer
	buf.WriteString("\033[H\033[2J")
	buf.WriteString("hyprgrid dashboard (Ctrl+C to exit)\n")
	buf.WriteString(time.Now().Format(time.RFC1123))
	buf.WriteString("\n\n")
	buf.WriteString(r.Frame(ctx))
	fmt.Fprint(r.Writer, buf.String())
}

// Frame renders one dashboard frame without terminal control sequences.
func (r *Renderer) Frame(ctx context.Context) string {
	tree, err := r.Client.Tree(ctx)
	if err != nil {
		return fmt.Sprintf("error: %v\n", err)
	}
	var b strings.Builder
	mode := "live"
	if tree.DryRun {
		mode = "dry-run"
	}
	b.WriteString(fmt.Sprintf("Display: %s  Orientation: %s  Contents: %d  Mode: %s\n\n", tree.Frame, tree.Orientation, tree.Contents, mode))

	if focus, err := r.Client.Focus(ctx); err == nil {
		b.WriteString(formatFocus(focus))
	} else {
		b.WriteString(fmt.Sprintf("Focus: error: %v\n", err))
	}
	b.WriteByte('\n')

	b.WriteString(tree.Tree)
	b.WriteString("\n\n")
	b.WriteString(renderPlacements(tree.Placements))

	history, err := r.Client.History(ctx)
	if err != nil {
		b.WriteString(fmt.Sprintf("History: error: %v\n", err))
		return b.String()
	}
	b.WriteString(renderLastChange(history.Records))
	return b.String()
}

func formatFocus(focus client.FocusStatus) string {
	switch {
	case focus.Container != "":
		return fmt.Sprintf("Focus: %s [%s]\n", focus.Node, focus.Container)
	case focus.Handle != "":
		return fmt.Sprintf("Focus: %s [%s]\n", focus.Node, focus.Handle)
	case focus.Node != "":
		return fmt.Sprintf("Focus: %s\n", focus.Node)
	default:
		return "Focus: (none)\n"
	}
}

func renderPlacements(placements []grid.Placement) string {
	var b strings.Builder
	b.WriteString("Placements:\n")
	if len(placements) == 0 {
		b.WriteString("  (none)\n\n")
		return b.String()
	}
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGeometry")
	for _, p := range placements {
		fmt.Fprintf(tw, "%d\t%s\n", p.ContentID, p.Frame)
	}
	tw.Flush()
	b.WriteByte('\n')
	return b.String()
}

func renderLastChange(records []client.ChangeRecord) string {
	var b strings.Builder
	b.WriteString("Last change:\n")
	if len(records) == 0 {
		b.WriteString("  (none)\n")
		return b.String()
	}
	last := records[len(records)-1]
	b.WriteString(fmt.Sprintf("  %s %s", last.Timestamp.Format(time.TimeOnly), last.Status))
	if last.Error != "" {
		b.WriteString(": " + last.Error)
	}
	b.WriteByte('\n')
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Change\tID\tGeometry")
	for _, p := range last.Changes.NewContentPositions {
		fmt.Fprintf(tw, "new\t%d\t%s\n", p.ContentID, p.Frame)
	}
	for _, p := range last.Changes.ModifiedContentPositions {
		fmt.Fprintf(tw, "modified\t%d\t%s\n", p.ContentID, p.Frame)
	}
	for _, id := range last.Changes.RemovedContentIDs {
		fmt.Fprintf(tw, "removed\t%s\t-\n", id)
	}
	tw.Flush()
	return b.String()
}
