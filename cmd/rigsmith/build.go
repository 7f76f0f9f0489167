package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeusync/rigsmith/internal/core/observability/log"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		withRig bool
		outline bool
	)
	cmd := &cobra.Command{
		Use:   "build <blueprint>",
		Short: "Build an assembly from a blueprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asm, err := a.assemble(args[0])
			if err != nil {
				return err
			}
			activity, err := watchScene(a.rt.Events)
			if err != nil {
				return err
			}
			defer func() { _ = activity.stop() }()
			st := a.rt.Store
			if st != nil {
				if _, err = st.LoadAssembly(asm); err != nil {
					return err
				}
			}
			if err = asm.BuildLayout(); err != nil {
				return err
			}
			if withRig {
				if err = asm.BuildRig(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if outline {
				if err = a.rt.Backend.Outline(out); err != nil {
					return err
				}
			}
			for _, w := range asm.Warnings() {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			fmt.Fprintf(out, "built %s: %d components, %d entities\n", asm.Name(), asm.Len(), a.rt.Backend.Len())
			fmt.Fprintf(out, "scene: %d created, %d destroyed\n", activity.created, activity.destroyed)
			m := a.rt.Events.Metrics()
			a.rt.Logger.Debug("event bus",
				log.Int("published", int(m.Published)),
				log.Int("delivered", int(m.DeliveredHandlers)),
				log.Int("errors", int(m.Errors)))

			if st == nil {
				return nil
			}
			if err = asm.CacheDiffs(); err != nil {
				return err
			}
			changed, err := st.SaveAssembly(asm)
			if err != nil {
				return err
			}
			a.rt.Logger.Debug("diffs saved", log.Int("changed", changed))
			return nil
		},
	}
	cmd.Flags().BoolVar(&withRig, "rig", false, "build the final rig after the layout")
	cmd.Flags().BoolVar(&outline, "outline", true, "print the scene hierarchy")
	return cmd
}
