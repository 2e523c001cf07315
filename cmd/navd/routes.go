package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/mchmarny/navd/pkg/component"
	"github.com/mchmarny/navd/pkg/logger"
	"github.com/mchmarny/navd/pkg/menu"
	"github.com/mchmarny/navd/pkg/route"
)

func newRoutesCmd(opts *rootOptions) *cobra.Command {
	var menus string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table built from a menu file",
		Long: `Reads a menu tree (JSON or YAML) and prints the route records the
console would register for it, without contacting a backend.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.SetDefaultLoggerWithFormat(appName, version, opts.logFormat, opts.logLevel)

			tree, err := menu.Load(menus)
			if err != nil {
				return err
			}

			records := route.BuildRoot(tree, component.Default())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}

	cmd.Flags().StringVar(&menus, "menus", "", "menu tree file")
	_ = cmd.MarkFlagRequired("menus")
	return cmd
}
