package ipc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hyprpal/hyprgrid/internal/layout"
	"github.com/hyprpal/hyprgrid/internal/util"
)

// Event kinds understood by the engine.
const (
	KindAdd       = "add"
	KindRemove    = "remove"
	KindFocus     = "focus"
	KindMoveFocus = "movefocus"
	KindMove      = "move"
	KindTick      = "tick"
)

// Event is one line of the content event stream, framed as kind>>payload.
type Event struct {
	Kind    string
	Payload string
}

// ParseLine splits a kind>>payload line. ok is false for blank lines and
// '#' comments.
func ParseLine(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Event{}, false
	}
	parts := strings.SplitN(line, ">>", 2)
	ev := Event{Kind: strings.ToLower(strings.TrimSpace(parts[0]))}
	if len(parts) == 2 {
		ev.Payload = strings.TrimSpace(parts[1])
	}
	return ev, true
}

// Stream decodes events from r until EOF or context cancellation. The channel
// is closed when the reader is exhausted.
func Stream(ctx context.Context, r io.Reader, logger *util.Logger) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			ev, ok := ParseLine(scanner.Text())
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && logger != nil {
			logger.Warnf("event stream error: %v", err)
		}
	}()
	return events
}

// Open returns a reader for path, where "-" means stdin. The returned closer
// is a no-op for stdin.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event source: %w", err)
	}
	return f, nil
}

// ParseAdd decodes an add payload of the form "id,handle". The handle may
// contain further commas.
func ParseAdd(payload string) (int, string, error) {
	parts := splitPayload(payload, 2)
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", fmt.Errorf("invalid add payload %q", payload)
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", fmt.Errorf("invalid content id %q: %w", parts[0], err)
	}
	return id, parts[1], nil
}

// ParseID decodes a payload that carries a single content id.
func ParseID(payload string) (int, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return 0, fmt.Errorf("missing content id")
	}
	id, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid content id %q: %w", trimmed, err)
	}
	return id, nil
}

// ParseDirection decodes a direction payload.
func ParseDirection(payload string) (layout.Direction, error) {
	return layout.ParseDirection(payload)
}

func splitPayload(payload string, maxParts int) []string {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil
	}
	parts := strings.SplitN(trimmed, ",", maxParts)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
