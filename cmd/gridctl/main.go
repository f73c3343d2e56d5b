package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/hyprpal/hyprgrid/internal/config"
	"github.com/hyprpal/hyprgrid/internal/control/client"
	"github.com/hyprpal/hyprgrid/internal/grid"
	"github.com/hyprpal/hyprgrid/internal/metrics"
	"github.com/hyprpal/hyprgrid/internal/ui/tui"
)

// controlClient is the daemon API used by the subcommands.
type controlClient interface {
	Tree(ctx context.Context) (client.TreeResult, error)
	Focus(ctx context.Context) (client.FocusStatus, error)
	SetFocus(ctx context.Context, id int) (client.FocusStatus, error)
	FocusRoot(ctx context.Context) (client.FocusStatus, error)
	MoveFocus(ctx context.Context, direction string) (client.MoveResult, error)
	MoveNode(ctx context.Context, direction string) (client.MoveResult, error)
	AddContent(ctx context.Context, id int, handle string) error
	RemoveContent(ctx context.Context, id int) (bool, error)
	Changes(ctx context.Context) (grid.ChangeSet, error)
	History(ctx context.Context) (client.HistoryResult, error)
	Metrics(ctx context.Context) (metrics.Snapshot, error)
	Reload(ctx context.Context) error
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	fs := flag.NewFlagSet("gridctl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socket := fs.String("socket", "", "path to hyprgrid control socket")
	timeout := fs.Duration("timeout", 3*time.Second, "control request timeout")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <command> [args]\n", fs.Name())
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Commands:")
		fmt.Fprintln(fs.Output(), "  tree\t\t\tprint the layout tree and placements")
		fmt.Fprintln(fs.Output(), "  focus [set <id>|root]\tshow or change focus")
		fmt.Fprintln(fs.Output(), "  focus move <dir>\tmove focus (north|south|east|west|up|down)")
		fmt.Fprintln(fs.Output(), "  move <dir>\t\tswap the focused node with its neighbour")
		fmt.Fprintln(fs.Output(), "  add <id> <handle>\tregister content")
		fmt.Fprintln(fs.Output(), "  remove <id>\t\tunregister content")
		fmt.Fprintln(fs.Output(), "  tick\t\t\tcompute and apply pending changes")
		fmt.Fprintln(fs.Output(), "  history\t\tshow recent change sets")
		fmt.Fprintln(fs.Output(), "  metrics\t\tshow telemetry counters")
		fmt.Fprintln(fs.Output(), "  reload\t\ttrigger a live config reload")
		fmt.Fprintln(fs.Output(), "  watch\t\t\tlaunch the dashboard")
		fmt.Fprintln(fs.Output(), "  check --config <path>\tvalidate a configuration file")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		return fmt.Errorf("missing subcommand")
	}

	if args[0] == "check" {
		return runCheck(args[1:], os.Stdout, os.Stderr)
	}

	cli, err := client.New(*socket)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	if args[0] == "watch" {
		return runWatch(cli)
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	if err := dispatch(ctx, cli, args, os.Stdout); err != nil {
		if errors.Is(err, errUnknownSubcommand) {
			fs.Usage()
		}
		return err
	}
	return nil
}

var errUnknownSubcommand = errors.New("unknown subcommand")

func dispatch(ctx context.Context, cli controlClient, args []string, out io.Writer) error {
	switch args[0] {
	case "tree":
		return runTree(ctx, cli, out)
	case "focus":
		return runFocus(ctx, cli, args[1:], out)
	case "move":
		if len(args) < 2 {
			return fmt.Errorf("move requires a direction")
		}
		result, err := cli.MoveNode(ctx, args[1])
		if err != nil {
			return err
		}
		printMove(out, "move", result)
		return nil
	case "add":
		if len(args) < 3 {
			return fmt.Errorf("add requires <id> <handle>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		if err := cli.AddContent(ctx, id, args[2]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Added content %d (%s)\n", id, args[2])
		return nil
	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("remove requires <id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		removed, err := cli.RemoveContent(ctx, id)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintf(out, "Content %d not managed\n", id)
			return nil
		}
		fmt.Fprintf(out, "Removed content %d\n", id)
		return nil
	case "tick":
		changes, err := cli.Changes(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, changes)
	case "history":
		return runHistory(ctx, cli, out)
	case "metrics":
		snap, err := cli.Metrics(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, snap)
	case "reload":
		if err := cli.Reload(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Reload requested")
		return nil
	default:
		return fmt.Errorf("%w %q", errUnknownSubcommand, args[0])
	}
}

func runCheck(args []string, stdout io.Writer, stderr io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *configPath == "" {
		fs.Usage()
		return fmt.Errorf("check requires --config <path>")
	}

	lintErrs, err := config.LintFile(*configPath)
	if err != nil {
		return err
	}
	if len(lintErrs) == 0 {
		fmt.Fprintln(stdout, "Configuration OK")
		return nil
	}

	fmt.Fprintf(stderr, "Configuration has %d issue(s):\n", len(lintErrs))
	for _, lintErr := range lintErrs {
		fmt.Fprintf(stderr, "- %s\n", lintErr.Error())
	}
	return fmt.Errorf("configuration validation failed")
}

func runTree(ctx context.Context, cli controlClient, out io.Writer) error {
	tree, err := cli.Tree(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tree.Tree)
	if len(tree.Placements) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGeometry")
	for _, p := range tree.Placements {
		fmt.Fprintf(tw, "%d\t%s\n", p.ContentID, p.Frame)
	}
	return tw.Flush()
}

func runFocus(ctx context.Context, cli controlClient, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "get" {
		status, err := cli.Focus(ctx)
		if err != nil {
			return err
		}
		printFocus(out, status)
		return nil
	}
	switch args[0] {
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("focus set requires a content id")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		status, err := cli.SetFocus(ctx, id)
		if err != nil {
			return err
		}
		printFocus(out, status)
		return nil
	case "root":
		status, err := cli.FocusRoot(ctx)
		if err != nil {
			return err
		}
		printFocus(out, status)
		return nil
	case "move":
		if len(args) < 2 {
			return fmt.Errorf("focus move requires a direction")
		}
		result, err := cli.MoveFocus(ctx, args[1])
		if err != nil {
			return err
		}
		printMove(out, "focus", result)
		return nil
	default:
		return fmt.Errorf("unknown focus subcommand %q", args[0])
	}
}

func runHistory(ctx context.Context, cli controlClient, out io.Writer) error {
	history, err := cli.History(ctx)
	if err != nil {
		return err
	}
	if len(history.Records) == 0 {
		fmt.Fprintln(out, "No changes recorded")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Time\tStatus\tNew\tModified\tRemoved")
	for _, rec := range history.Records {
		added, modified, removed := rec.Changes.Counts()
		status := rec.Status
		if rec.Error != "" {
			status += ": " + rec.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", rec.Timestamp.Format(time.TimeOnly), status, added, modified, removed)
	}
	return tw.Flush()
}

func runWatch(cli *client.Client) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	renderer := tui.New(cli, os.Stdout)
	if err := renderer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printFocus(out io.Writer, status client.FocusStatus) {
	if status.Handle != "" {
		fmt.Fprintf(out, "Focused: %s [%s]\n", status.Node, status.Handle)
		return
	}
	fmt.Fprintf(out, "Focused: %s\n", status.Node)
}

func printMove(out io.Writer, verb string, result client.MoveResult) {
	if !result.Moved {
		fmt.Fprintf(out, "No %s change\n", verb)
	}
	printFocus(out, result.Focus)
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid content id %q", raw)
	}
	return id, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
