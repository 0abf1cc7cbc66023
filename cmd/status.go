// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Thermoquad/viscam/pkg/visca"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Read every readable property",
	Long: `Query every readable property and print a table, followed by exchange
statistics.

Queries are issued concurrently; the transport serializes them on the wire.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// propertyResult is one row of the status table
type propertyResult struct {
	Name  string
	Value visca.Value
	Err   error
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *Session) error {
		fmt.Printf("Viscam - Camera Status\n")
		fmt.Printf("Connection: %s\n\n", s.Describe())

		results, err := fetchAll(ctx, s.Camera)
		if err != nil {
			return err
		}
		writeStatus(os.Stdout, results)

		s.Stats.CalculateRates()
		fmt.Print(s.Stats.String())
		return nil
	})
}

// fetchAll reads every readable property. Per-property failures are kept
// in the result; only cancellation aborts the fetch.
func fetchAll(ctx context.Context, cam *visca.Camera) ([]propertyResult, error) {
	props := cam.Catalog().Properties()
	results := make([]propertyResult, len(props))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range props {
		if !p.Readable() {
			continue
		}
		i, p := i, p
		g.Go(func() error {
			v, err := cam.Get(gctx, p.Name)
			results[i] = propertyResult{Name: p.Name, Value: v, Err: err}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeStatus(out io.Writer, results []propertyResult) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, r := range results {
		if r.Name == "" {
			continue
		}
		if r.Err != nil {
			fmt.Fprintf(w, "%s\t%s\n", r.Name, describeError(r.Err))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", r.Name, r.Value)
	}
	w.Flush()
	fmt.Fprintln(out)
}
