package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "clibjs",
	Short: "Run and inspect programs in a small JavaScript-like language",
	Long: `clibjs provides three features:
- Runs a program end to end (lex, parse, compile, execute).
- Prints the parsed AST, for debugging the parser.
- Disassembles compiled bytecode, for debugging the compiler.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}
