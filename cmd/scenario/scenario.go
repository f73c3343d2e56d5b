package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/hyprpal/hyprgrid/internal/config"
	"github.com/hyprpal/hyprgrid/internal/grid"
	"github.com/hyprpal/hyprgrid/internal/layout"
	"github.com/hyprpal/hyprgrid/internal/util"
)

// Scenario is a scripted sequence of grid operations.
type Scenario struct {
	Display     config.Display `yaml:"display"`
	Orientation string         `yaml:"orientation"`
	Steps       []Step         `yaml:"steps"`
}

// Step holds exactly one operation.
type Step struct {
	Add       *AddStep `yaml:"add,omitempty"`
	Remove    *int     `yaml:"remove,omitempty"`
	Focus     *int     `yaml:"focus,omitempty"`
	FocusRoot bool     `yaml:"focusRoot,omitempty"`
	MoveFocus string   `yaml:"moveFocus,omitempty"`
	MoveNode  string   `yaml:"moveNode,omitempty"`
	Compute   bool     `yaml:"compute,omitempty"`
}

// AddStep registers content id under handle.
type AddStep struct {
	ID     int    `yaml:"id"`
	Handle string `yaml:"handle"`
}

func (s Step) ops() int {
	n := 0
	for _, set := range []bool{s.Add != nil, s.Remove != nil, s.Focus != nil, s.FocusRoot, s.MoveFocus != "", s.MoveNode != "", s.Compute} {
		if set {
			n++
		}
	}
	return n
}

// ParseScenario decodes and checks a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if sc.Orientation == "" {
		sc.Orientation = "horizontal"
	}
	if _, err := layout.ParseOrientation(sc.Orientation); err != nil {
		return nil, fmt.Errorf("orientation: %w", err)
	}
	if sc.Display.Width <= 0 || sc.Display.Height <= 0 {
		return nil, errors.New("display: width and height must be positive")
	}
	for i, step := range sc.Steps {
		if n := step.ops(); n != 1 {
			return nil, fmt.Errorf("steps[%d]: expected exactly one operation, got %d", i, n)
		}
	}
	return &sc, nil
}

// Run plays the scenario against a fresh grid, writing every computed change
// set as one JSON line and finally the tree dump.
func Run(sc *Scenario, out io.Writer, logger *util.Logger) error {
	orientation, err := layout.ParseOrientation(sc.Orientation)
	if err != nil {
		return err
	}
	g := grid.New[string](sc.Display.Rect(), orientation, grid.WithLogger(logger))
	g.OnContentResizeNeeded(func(cs grid.ChangeSet) {
		added, modified, removed := cs.Counts()
		logger.Debugf("changes: %d new, %d modified, %d removed", added, modified, removed)
	})
	g.OnFocusMoved(func(n grid.Node) {
		logger.Debugf("focus moved to %s", n)
	})

	for i, step := range sc.Steps {
		if err := apply(g, step, out, logger); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	_, err = fmt.Fprintln(out, g.String())
	return err
}

func apply(g *grid.Grid[string], step Step, out io.Writer, logger *util.Logger) error {
	switch {
	case step.Add != nil:
		_, err := g.AddContainerForContent(step.Add.Handle, step.Add.ID)
		return err
	case step.Remove != nil:
		if !g.RemoveContainerForContent(*step.Remove) {
			logger.Infof("remove %d: not managed", *step.Remove)
		}
	case step.Focus != nil:
		if !g.SetFocusByID(*step.Focus) {
			return fmt.Errorf("focus %d: %w", *step.Focus, grid.ErrUnknownContent)
		}
	case step.FocusRoot:
		g.SetFocus(g.Root())
	case step.MoveFocus != "":
		d, err := layout.ParseDirection(step.MoveFocus)
		if err != nil {
			return err
		}
		if !g.MoveFocus(d) {
			logger.Infof("moveFocus %s: no change", d)
		}
	case step.MoveNode != "":
		d, err := layout.ParseDirection(step.MoveNode)
		if err != nil {
			return err
		}
		if !g.MoveNode(d) {
			logger.Infof("moveNode %s: no change", d)
		}
	case step.Compute:
		data, err := json.Marshal(g.CalculateChanges())
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%s\n", data); err != nil {
			return fmt.Errorf("write changes: %w", err)
		}
	}
	return nil
}
