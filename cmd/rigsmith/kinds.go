package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zeusync/rigsmith/internal/core/widget"
)

func newKindsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List registered component kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tPLUGS\tOPTIONS")
			for _, name := range a.rt.Registry.Names() {
				kind, err := a.rt.Registry.New(name)
				if err != nil {
					return err
				}
				opts := widget.NewOptions()
				kind.DeclareOptions(opts)
				fmt.Fprintf(tw, "%s\t%s\t%s\n", name, strings.Join(kind.Plugs(), ","), strings.Join(opts.Names(), ","))
			}
			return tw.Flush()
		},
	}
}
