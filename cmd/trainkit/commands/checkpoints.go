package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/randalmurphal/trainkit/pkg/trainkit/checkpoint"
)

// CheckpointsCmd groups the checkpoint subcommands.
type CheckpointsCmd struct {
	List    CheckpointsListCmd    `cmd:"" help:"List checkpoint files ordered by epoch"`
	Latest  CheckpointsLatestCmd  `cmd:"" help:"Show the checkpoint with the highest epoch"`
	Inspect CheckpointsInspectCmd `cmd:"" help:"Show one checkpoint file"`
}

// CheckpointsListCmd implements 'checkpoints list'.
type CheckpointsListCmd struct {
	Dir string `short:"d" help:"Checkpoint directory (default from settings)" placeholder:"DIR"`
}

func (c *CheckpointsListCmd) Run(g *Global, root *CLI) error {
	store, err := openStore(root, c.Dir)
	if err != nil {
		return err
	}
	infos, err := store.List()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EPOCH\tSIZE\tMODIFIED\tPATH")
	for _, info := range infos {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", info.Epoch, info.Size, info.ModTime.Format(time.RFC3339), info.Path)
	}
	return tw.Flush()
}

// CheckpointsLatestCmd implements 'checkpoints latest'.
type CheckpointsLatestCmd struct {
	Dir    string `short:"d" help:"Checkpoint directory (default from settings)" placeholder:"DIR"`
	Device string `help:"Device hint to report (default from settings)"`
}

func (c *CheckpointsLatestCmd) Run(g *Global, root *CLI) error {
	store, err := openStore(root, c.Dir)
	if err != nil {
		return err
	}
	loaded, err := store.LoadLatest(context.Background(), c.Device)
	if err != nil {
		return err
	}
	return printLoaded(g.out(), loaded)
}

// CheckpointsInspectCmd implements 'checkpoints inspect'.
type CheckpointsInspectCmd struct {
	Path   string `arg:"" help:"Checkpoint file" type:"path"`
	Device string `help:"Device hint to report (default from settings)"`
}

func (c *CheckpointsInspectCmd) Run(g *Global, root *CLI) error {
	store, err := openStore(root, filepath.Dir(c.Path))
	if err != nil {
		return err
	}
	loaded, err := store.Load(context.Background(), c.Path, c.Device)
	if err != nil {
		return err
	}
	return printLoaded(g.out(), loaded)
}

// openStore creates a store for dir, falling back to the settings directory.
func openStore(root *CLI, dir string) (*checkpoint.Store, error) {
	settings := root.Settings()
	if dir == "" {
		dir = settings.Checkpoint.Dir
	}
	opts := []checkpoint.Option{
		checkpoint.WithInterval(settings.Checkpoint.Interval),
		checkpoint.WithDevice(settings.Checkpoint.Device),
	}
	if logger := root.verboseLogger(); logger != nil {
		opts = append(opts, checkpoint.WithLogger(logger))
	}
	return checkpoint.New(dir, opts...)
}

func printLoaded(w io.Writer, loaded *checkpoint.Loaded) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "path:\t%s\n", loaded.Path)
	fmt.Fprintf(tw, "architecture:\t%s\n", loaded.Architecture)
	fmt.Fprintf(tw, "epoch:\t%d\n", loaded.Epoch)
	fmt.Fprintf(tw, "model state:\t%d bytes\n", len(loaded.ModelState))
	fmt.Fprintf(tw, "optimizer state:\t%d bytes\n", len(loaded.OptimizerState))
	fmt.Fprintf(tw, "device:\t%s\n", loaded.Device)
	fmt.Fprintf(tw, "created:\t%s\n", loaded.CreatedAt.Format(time.RFC3339))
	return tw.Flush()
}
