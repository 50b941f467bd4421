package vm

// TryRegion is one entry of a function's try-region table (§4.3, §12):
// while the running logical PC is within [Start,End), a THROW unwinds to
// Catch (if HasCatch), after whose body the finally block (if HasFinally)
// runs by falling through; without a catch it runs Finally and then
// resumes propagating. A throw from inside the catch body does not run
// this region's finally.
type TryRegion struct {
	Start, End int
	HasCatch   bool
	CatchPC    int
	CatchParam string
	HasFinally bool
	FinallyPC  int
	FinallyEnd int
}

// Proto is one function's compiled code: its instruction stream,
// parameter names, and try-region table (§6). A compiled program is a
// []*Proto with the top-level script at index 0.
type Proto struct {
	Name       string
	Params     []string
	Code       []Instr
	TryRegions []TryRegion

	pcIndex map[int]int // logical PC -> slice index, built lazily by indexOf
}

// indexOf translates a logical instruction pointer (§3) into the slice
// index of the instruction occupying it, building the lookup table on
// first use.
func (p *Proto) indexOf(pc int) int {
	if p.pcIndex == nil {
		p.pcIndex = make(map[int]int, len(p.Code))
		total := 0
		for i, instr := range p.Code {
			p.pcIndex[total] = i
			total += 1 + instr.Op.NumOperands()
		}
		p.pcIndex[total] = len(p.Code) // one-past-the-end, e.g. an empty try region
	}
	idx, ok := p.pcIndex[pc]
	if !ok {
		return len(p.Code)
	}
	return idx
}
