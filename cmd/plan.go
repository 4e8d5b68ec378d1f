package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"vesta/lib/pipeline"
)

func init() {
	Command.AddCommand(&cobra.Command{
		Use:   "plan <config>",
		Short: "print the stream graph of a pipeline",
		Long:  `build and compile the pipeline of a config file, then print its nodes and edges without running it.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := load(args[0])
			if err != nil {
				return err
			}
			p, err := pipeline.Build(ps)
			if err != nil {
				return err
			}
			g, err := p.Compile()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), g.Render())
			return nil
		},
	})
}
