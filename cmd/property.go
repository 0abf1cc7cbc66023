// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/viscam/pkg/visca"
)

var getCmd = &cobra.Command{
	Use:   "get NAME...",
	Short: "Query and decode camera properties",
	Long: `Query one or more properties and print their decoded values.

Property names are case-insensitive; "pan" and "tilt" both read the pan_tilt
position. Run "viscam catalog" for the full list.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGet,
}

var setCmd = &cobra.Command{
	Use:   "set NAME VALUE",
	Short: "Set a camera property",
	Long: `Encode VALUE for the named property and send it to the camera.

Toggles accept on/off, enums accept their label or numeric code, numeric
properties accept decimal or 0x hex. color_gain and color_hue also accept
"120%" and "-4°". pan_tilt takes "PAN,TILT" in degrees.`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

var doCmd = &cobra.Command{
	Use:   "do ACTION",
	Short: "Run a one-shot camera action",
	Args:  cobra.ExactArgs(1),
	RunE:  runDo,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List known properties and actions",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

func init() {
	rootCmd.AddCommand(getCmd, setCmd, doCmd, catalogCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *Session) error {
		var failed []error
		for _, name := range args {
			v, err := s.Camera.Get(ctx, name)
			if err != nil {
				fmt.Printf("%-26s %s\n", name, describeError(err))
				failed = append(failed, err)
				continue
			}
			fmt.Printf("%-26s %s\n", name, v)
		}
		return errors.Join(failed...)
	})
}

func runSet(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *Session) error {
		return s.Camera.Set(ctx, args[0], args[1])
	})
}

func runDo(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *Session) error {
		return s.Camera.Do(ctx, args[0])
	})
}

func runCatalog(cmd *cobra.Command, args []string) error {
	writeCatalog(os.Stdout, visca.DefaultCatalog())
	return nil
}

func writeCatalog(out io.Writer, c *visca.Catalog) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROPERTY\tKIND\tINQUIRY\tWRITABLE\tVALUES")
	for _, p := range c.Properties() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n", p.Name, p.Kind, visca.FormatHex(p.Inquiry), p.Writable(), describeRange(p))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "ACTION\tCOMMAND")
	for _, a := range c.Actions() {
		fmt.Fprintf(w, "%s\t%s %s\n", a.Name, visca.FormatHex(a.Prefix), visca.FormatHex(a.Subcommand))
	}
	fmt.Fprintf(w, "stop\tpan/tilt stop\n")
	w.Flush()
}

func describeRange(p visca.Property) string {
	switch {
	case len(p.Labels) > 0:
		return fmt.Sprintf("%d labels", len(p.Labels))
	case p.Kind == visca.KindBool:
		return "on|off"
	case p.Max > p.Min:
		return fmt.Sprintf("%d..%d", p.Min, p.Max)
	default:
		return ""
	}
}

// describeError renders an exchange failure for the result column
func describeError(err error) string {
	switch {
	case errors.Is(err, visca.ErrSyntax):
		return "not accepted (syntax error)"
	case errors.Is(err, visca.ErrNotExecutable):
		return "not accepted (not executable)"
	case errors.Is(err, visca.ErrExhausted):
		return "no answer"
	case errors.Is(err, visca.ErrBufferFull):
		return "camera busy (buffer full)"
	default:
		return "error: " + err.Error()
	}
}
