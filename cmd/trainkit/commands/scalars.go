package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/randalmurphal/trainkit/pkg/trainkit/metrics"
)

// ScalarsCmd implements the 'scalars' command.
type ScalarsCmd struct {
	DB  string `help:"SQLite database (default from settings)" placeholder:"FILE" type:"path"`
	Tag string `short:"t" required:"" help:"Tag to print"`
}

func (s *ScalarsCmd) Run(g *Global, root *CLI) error {
	path := s.DB
	if path == "" {
		path = root.Settings().SQLitePath()
	}
	// Opening creates the file, so check first to report a clear error.
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	sink, err := metrics.NewSQLiteSink(path, "")
	if err != nil {
		return err
	}
	defer sink.Close()

	points, err := sink.Scalars(context.Background(), s.Tag)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return fmt.Errorf("no scalars recorded for tag %q", s.Tag)
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUB_TAG\tSTEP\tVALUE\tRUN")
	for _, p := range points {
		sub := p.SubTag
		if sub == "" {
			sub = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%g\t%s\n", sub, p.Step, p.Value, p.RunID)
	}
	return tw.Flush()
}
