package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/xianjiezh/clibjs/constpool"
	"github.com/xianjiezh/clibjs/engine"
	"github.com/xianjiezh/clibjs/vm"
)

func init() {
	cmd := &cobra.Command{
		Use:     "dis [file]",
		Short:   "Disassemble the compiled bytecode of a program",
		Example: `  clibjs dis program.js`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runDis,
	}
	rootCmd.AddCommand(cmd)
}

func runDis(cmd *cobra.Command, args []string) error {
	src, err := readSource(args)
	if err != nil {
		return err
	}
	compiled, err := engine.Compile(src)
	if err != nil {
		return err
	}
	for i, proto := range compiled.Functions {
		dumpProto(os.Stdout, i, proto, compiled.Pool)
	}
	compiled.Pool.Dump(os.Stdout)
	return nil
}

func dumpProto(w io.Writer, idx int, proto *vm.Proto, pool *constpool.Pool) {
	name := proto.Name
	if name == "" {
		name = "<top-level>"
	}
	fmt.Fprintf(w, "function[%d] %s(%v)\n", idx, name, proto.Params)
	pc := 0
	for _, instr := range proto.Code {
		fmt.Fprintf(w, "  %4d %-22s", pc, instr.Op)
		switch instr.Op.NumOperands() {
		case 1:
			fmt.Fprintf(w, " %d%s", instr.A, operandHint(instr, pool))
		case 2:
			fmt.Fprintf(w, " %d %d", instr.A, instr.B)
		}
		fmt.Fprintln(w)
		pc += 1 + instr.Op.NumOperands()
	}
	for _, tr := range proto.TryRegions {
		fmt.Fprintf(w, "  try [%d,%d) catch=%v@%d finally=%v@%d(end %d)\n",
			tr.Start, tr.End, tr.HasCatch, tr.CatchPC, tr.HasFinally, tr.FinallyPC, tr.FinallyEnd)
	}
	fmt.Fprintln(w)
}

func operandHint(instr vm.Instr, pool *constpool.Pool) string {
	switch instr.Op {
	case vm.LOAD_CONST:
		lit := pool.LiteralAt(int(instr.A))
		if lit.Kind == constpool.LiteralString {
			return fmt.Sprintf("  ; %q", lit.Str)
		}
		return fmt.Sprintf("  ; %v", lit.Number)
	case vm.LOAD_NAME, vm.LOAD_FAST, vm.LOAD_GLOBAL, vm.LOAD_DEREF,
		vm.LOAD_ATTR, vm.LOAD_METHOD, vm.STORE_NAME, vm.STORE_FAST,
		vm.STORE_ATTR, vm.DELETE_ATTR:
		return fmt.Sprintf("  ; %s", pool.NameAt(int(instr.A)))
	default:
		return ""
	}
}
