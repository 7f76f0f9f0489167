package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeusync/rigsmith/internal/blueprint"
	"github.com/zeusync/rigsmith/pkg/concurrent"
	"github.com/zeusync/rigsmith/pkg/sequence"
)

var errInvalidBlueprints = errors.New("invalid blueprints")

func newValidateCmd(a *app) *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "validate <blueprint>...",
		Short: "Check blueprints without building them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := concurrent.Collect(sequence.From(args), jobs, func(path string) (error, error) {
				bp, err := blueprint.LoadFile(path)
				if err != nil {
					return err, nil
				}
				return bp.Validate(a.rt.Registry), nil
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for i, res := range results {
				if res != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", args[i], res)
					continue
				}
				fmt.Fprintf(out, "ok   %s\n", args[i])
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", errInvalidBlueprints, failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", -1, "maximum blueprints checked at once, negative for no limit")
	return cmd
}
