package constpool

import (
	"fmt"
	"io"
)

// Dump writes the §6 debug-only, line-oriented constants-pool format:
//
//	C [#NNN] [NAME  ] <name>
//	C [#NNN] [STRING] <string>
//	C [#NNN] [NUMBER] <double>
func (p *Pool) Dump(w io.Writer) {
	for i, n := range p.names {
		fmt.Fprintf(w, "C [#%03d] [NAME  ] %v\n", i, n)
	}
	for i, l := range p.literals {
		switch l.Kind {
		case LiteralString:
			fmt.Fprintf(w, "C [#%03d] [STRING] %v\n", i, l.Str)
		case LiteralNumber:
			fmt.Fprintf(w, "C [#%03d] [NUMBER] %v\n", i, l.Number)
		}
	}
}
