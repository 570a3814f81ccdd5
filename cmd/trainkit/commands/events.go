package commands

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/randalmurphal/trainkit/pkg/trainkit/metrics"
)

// EventsCmd implements the 'events' command.
type EventsCmd struct {
	Path string `arg:"" optional:"" help:"Event file or directory (default: newest file in the metrics output directory)" type:"path"`
	Tag  string `short:"t" help:"Only print events for this tag"`
}

func (e *EventsCmd) Run(g *Global, root *CLI) error {
	path, err := resolveEventFile(e.Path, root.Settings().Metrics.OutputDir)
	if err != nil {
		return err
	}
	events, err := metrics.ReadEvents(path)
	if err != nil {
		return err
	}

	w := g.out()
	for _, ev := range events {
		if e.Tag != "" && ev.Tag != e.Tag {
			continue
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", ev.Step, ev.Op, ev.Tag, describeEvent(ev)); err != nil {
			return err
		}
	}
	return nil
}

// resolveEventFile picks the newest event file when path is a directory or
// empty.
func resolveEventFile(path, defaultDir string) (string, error) {
	if path == "" {
		path = defaultDir
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}
	files, err := metrics.EventFiles(path)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no event files in %s", path)
	}
	return files[len(files)-1], nil
}

// describeEvent renders the value part of an event on one line.
func describeEvent(ev metrics.Event) string {
	switch {
	case ev.Value != nil:
		return strconv.FormatFloat(*ev.Value, 'g', -1, 64)
	case len(ev.Values) > 0:
		keys := make([]string, 0, len(ev.Values))
		for k := range ev.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + strconv.FormatFloat(ev.Values[k], 'g', -1, 64)
		}
		return strings.Join(parts, " ")
	case ev.Summary != nil:
		s := ev.Summary
		return fmt.Sprintf("count=%d min=%g max=%g mean=%g stddev=%g", s.Count, s.Min, s.Max, s.Mean, s.StdDev)
	case ev.Op == metrics.OpAddText:
		return strconv.Quote(ev.Text)
	default:
		return fmt.Sprintf("<%d bytes>", len(ev.Payload))
	}
}
