package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xianjiezh/clibjs/ast"
	"github.com/xianjiezh/clibjs/engine"
)

func init() {
	cmd := &cobra.Command{
		Use:     "ast [file]",
		Short:   "Print the parsed AST of a program",
		Example: `  clibjs ast program.js`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runAST,
	}
	rootCmd.AddCommand(cmd)
}

func runAST(cmd *cobra.Command, args []string) error {
	src, err := readSource(args)
	if err != nil {
		return err
	}
	root, err := engine.Parse(src)
	if err != nil {
		return err
	}
	dumpNode(os.Stdout, root, 0)
	return nil
}

func dumpNode(w io.Writer, n *ast.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n.Kind {
	case ast.KindCollection:
		fmt.Fprintf(w, "%s%v\n", indent, n.Coll)
	default:
		fmt.Fprintf(w, "%s%v %q\n", indent, n.Kind, n.Str)
	}
	for _, c := range n.Children() {
		dumpNode(w, c, depth+1)
	}
}

func readSource(args []string) (string, error) {
	if len(args) == 0 {
		b, err := ioutil.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	b, err := ioutil.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", args[0], err)
	}
	return string(b), nil
}
