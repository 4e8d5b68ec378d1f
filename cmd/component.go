package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"vesta/lib/component"
	"vesta/lib/properties"
)

func init() {
	Command.AddCommand(&cobra.Command{
		Use:       "component <source|operator|sink>",
		Short:     "list vesta source operator sink.",
		Long:      `list the registered source, operator or sink types with their properties.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"source", "operator", "sink"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var defs []component.Def
			switch args[0] {
			case "source":
				defs = component.ListSourceDef()
			case "operator":
				defs = component.ListOperatorDef()
			case "sink":
				defs = component.ListSinkDef()
			default:
				return errors.Errorf("unknown component type %s", args[0])
			}

			for _, def := range defs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s:\n%s\n", def.Type, def.Kind, properties.RenderDef(def.PropertiesDef))
			}
			return nil
		}})
}
