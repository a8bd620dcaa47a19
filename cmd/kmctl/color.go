package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nexcar/rwe-km/internal/gradient"
)

func newColorCmd() *cobra.Command {
	var scheme string

	cmd := &cobra.Command{
		Use:   "color PERCENT...",
		Short: "Map survival percentages to scheme colours",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := gradient.Lookup(scheme)
			if !ok {
				return fmt.Errorf("unknown scheme %q (known: %s)", scheme, strings.Join(gradient.Names(), ", "))
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PERCENT\tRGB\tHEX\tTEXT")
			for _, arg := range args {
				pct, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("invalid percent %q", arg)
				}
				c := gradient.ColorFor(pct, s)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", arg, c.CSS(), c.Hex(), gradient.TextColorFor(pct))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", "clinical", "colour scheme name")
	return cmd
}
