package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/rigsmith/internal/blueprint"
	"github.com/zeusync/rigsmith/internal/store"
)

var errNoStore = errors.New("no store_path configured")

func newDiffCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Inspect stored component diffs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "export <blueprint>",
			Short: "Print the stored diffs of an assembly as YAML",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				st, name, err := a.storeFor(args[0])
				if err != nil {
					return err
				}
				diffs, err := st.All(name)
				if err != nil {
					return err
				}
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err = enc.Encode(diffs); err != nil {
					return err
				}
				return enc.Close()
			},
		},
		&cobra.Command{
			Use:   "list <blueprint>",
			Short: "List components with stored diffs",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				st, name, err := a.storeFor(args[0])
				if err != nil {
					return err
				}
				ids, err := st.List(name)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear <blueprint> <component>...",
			Short: "Forget the stored diffs of components",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				st, name, err := a.storeFor(args[0])
				if err != nil {
					return err
				}
				for _, id := range args[1:] {
					if err = st.Delete(name, id); err != nil {
						return err
					}
				}
				return nil
			},
		},
	)
	return cmd
}

func (a *app) storeFor(path string) (*store.Store, string, error) {
	if a.rt.Store == nil {
		return nil, "", errNoStore
	}
	bp, err := blueprint.LoadFile(path)
	if err != nil {
		return nil, "", err
	}
	return a.rt.Store, bp.Name, nil
}
