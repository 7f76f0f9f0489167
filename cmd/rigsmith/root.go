package main

import (
	"github.com/spf13/cobra"

	"github.com/zeusync/rigsmith/internal/blueprint"
	"github.com/zeusync/rigsmith/internal/config"
	"github.com/zeusync/rigsmith/internal/core/observability/log"
	"github.com/zeusync/rigsmith/internal/core/rig"
	"github.com/zeusync/rigsmith/internal/injector"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfgFile string
	rt      *injector.Runtime
	cleanup func()
}

func newRootCmd(a *app) *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:   "rigsmith",
		Short: "Procedural rig assembly builder",
		Long: `rigsmith assembles character rigs out of reusable components described
in blueprint files. Layout customisations are kept as diffs and restored
whenever a component is rebuilt.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlag("log_level", cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
				return err
			}
			if err := v.BindPFlag("strict", cmd.Root().PersistentFlags().Lookup("strict")); err != nil {
				return err
			}
			cfg, err := config.Load(v, a.cfgFile)
			if err != nil {
				return err
			}
			a.rt, a.cleanup, err = injector.InitializeRuntime(cfg)
			if err != nil {
				return err
			}
			a.rt.Logger.Debug("configuration loaded",
				log.Bool("strict", cfg.Strict),
				log.Float64("tolerance", cfg.Tolerance),
				log.String("store", cfg.StorePath))
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./rigsmith.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error or silent")
	flags.Bool("strict", false, "fail on state guard violations instead of warning")

	root.AddCommand(
		newBuildCmd(a),
		newValidateCmd(a),
		newDiffCmd(a),
		newKindsCmd(a),
	)
	return root
}

// execute runs the command tree and releases the runtime afterwards, also
// when a subcommand fails.
func (a *app) execute(root *cobra.Command) error {
	defer a.close()
	return root.Execute()
}

func (a *app) close() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
	if a.rt != nil {
		_ = a.rt.Logger.Sync()
	}
}

// assemble loads a blueprint file and builds an unbuilt assembly from it
// with the configured settings.
func (a *app) assemble(path string) (*rig.Assembly, error) {
	bp, err := blueprint.LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := a.rt.Config
	return bp.Build(a.rt.Registry, a.rt.Backend,
		blueprint.WithLogger(a.rt.Logger),
		blueprint.WithStrict(cfg.Strict),
		blueprint.WithTolerance(cfg.Tolerance),
		blueprint.WithSeparator(cfg.Separator),
		blueprint.WithCharacter(cfg.Character),
	)
}
