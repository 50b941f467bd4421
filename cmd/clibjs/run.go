package main

import (
	"github.com/spf13/cobra"
	"github.com/xianjiezh/clibjs/engine"
)

func init() {
	cmd := &cobra.Command{
		Use:     "run [file]",
		Short:   "Run a program",
		Example: `  clibjs run program.js`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runRun,
	}
	rootCmd.AddCommand(cmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	src, err := readSource(args)
	if err != nil {
		return err
	}
	e := engine.New()
	_, err = e.Run(src)
	return err
}
