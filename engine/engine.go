// Package engine wires the pipeline stages together: source text through
// rdparser's AST, codegen's symbol-tree lowering and bytecode emission,
// and vm's interpreter, sharing one value.Heap and gc.Collector across a
// single script evaluation (§1, C1-C8).
package engine

import (
	"io"
	"os"

	"github.com/xianjiezh/clibjs/ast"
	"github.com/xianjiezh/clibjs/codegen"
	"github.com/xianjiezh/clibjs/gc"
	"github.com/xianjiezh/clibjs/rdparser"
	"github.com/xianjiezh/clibjs/value"
	"github.com/xianjiezh/clibjs/vm"
)

// Engine owns the runtime state a script needs: the heap every value
// lives in and the collector that reclaims it. A fresh Engine starts
// with an empty heap; Run compiles and executes one program against it.
// Out is print/console.log's destination; it defaults to os.Stdout but
// can be pointed at any io.Writer (tests point it at a bytes.Buffer).
type Engine struct {
	Heap      *value.Heap
	Collector *gc.Collector
	Out       io.Writer
}

func New() *Engine {
	h := value.NewHeap()
	return &Engine{Heap: h, Collector: gc.New(h), Out: os.Stdout}
}

// Parse runs only the front end, for tooling that needs the AST without
// generating or executing code (the `ast` debug subcommand, §13).
func Parse(src string) (*ast.Node, error) {
	return rdparser.Parse(src)
}

// Compile runs the parser, lowering pass, and bytecode emitter, without
// executing anything (the `dis` debug subcommand, §6, §13).
func Compile(src string) (*codegen.Compiled, error) {
	root, err := rdparser.Parse(src)
	if err != nil {
		return nil, err
	}
	top, err := codegen.NewLowerer(src).LowerProgram(root)
	if err != nil {
		return nil, err
	}
	return codegen.Compile(top)
}

// Run compiles src and executes it against e's heap, returning the
// program's completion value: the value of a top-level `return` if the
// script executes one, otherwise undefined (the value of the last
// expression statement is not returned).
func (e *Engine) Run(src string) (value.ValueID, error) {
	compiled, err := Compile(src)
	if err != nil {
		return value.NilID, err
	}
	interp := vm.NewInterp(e.Heap, e.Collector, compiled.Pool, compiled.Functions)
	if e.Out != nil {
		interp.SetOutput(e.Out)
	}
	return interp.Run()
}

// RunString runs src on a fresh Engine and returns its completion value
// (see Run) rendered by value.ToString. Output from print/console.log
// still goes to the Engine's Out (os.Stdout) and is not part of the
// returned string.
func RunString(src string) (string, error) {
	e := New()
	result, err := e.Run(src)
	if err != nil {
		return "", err
	}
	return value.ToString(e.Heap, result), nil
}
