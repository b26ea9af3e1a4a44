// Package stats implements the manuscript statistics command.
package stats

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	cli "github.com/urfave/cli/v3"

	"scribe/manuscript"
	"scribe/state"
)

func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("stats")

	bundleDir := cmd.Args().Get(0)
	if bundleDir == "" {
		return errors.New("no bundle has been specified")
	}

	m, err := manuscript.LoadBundle(bundleDir)
	if err != nil {
		return fmt.Errorf("unable to load bundle: %w", err)
	}

	counter := manuscript.NewCounter(m.Language, log)
	stats := counter.Collect(m)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SECTION\tTYPE\tWORDS\tSENTENCES")
	for _, ss := range stats.Sections {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", ss.Title, ss.Type, ss.Words, ss.Sentences)
	}
	fmt.Fprintf(w, "TOTAL\t\t%d\t%d\n", stats.Words, stats.Sentences)
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nEstimated reading time: %s\n", stats.ReadingTime.Round(time.Second))
	return nil
}
