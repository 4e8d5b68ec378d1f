package main

import (
	_c "context"

	"github.com/spf13/cobra"
	"vesta/lib/log"
	"vesta/lib/runtime"
	"vesta/pkg/constant"
)

func init() {
	var encoder string
	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "run a pipeline",
		Long:  `build the source operator sink pipeline of a config file and run it until the sources end or a signal arrives.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := load(args[0])
			if err != nil {
				return err
			}
			log.Setup(log.DefaultOptions().
				WithOutputEncoder(log.OutputEncoder(encoder)).
				WithLevel(ps.Global().GetString(constant.RuntimeLogLevelProperty)))

			r, err := runtime.NewFromProperties(_c.Background(), ps)
			if err != nil {
				return err
			}
			r.NotifySignal()
			return r.Run()
		},
	}
	cmd.Flags().StringVar(&encoder, "log-encoder", string(log.JSONOutputEncoder), "json or console")
	Command.AddCommand(cmd)
}
