package tap

import "fmt"

// Transition names one of the fixed TAP walks used during TAP.7 bring-up.
type Transition uint8

const (
	TransitionTLR Transition = iota
	TransitionTLRToRTI
	TransitionTLRToSDR
	TransitionSDRToRTI
	TransitionRTIToSDR
	TransitionE1DRToSDR
	TransitionE1DRToRTI
)

// transitionDef is the single definition of every canonical walk. The end
// state is checked against the state table in tests.
type transitionDef struct {
	name string
	tms  Pattern
	from State
	to   State
}

var transitionDefs = [...]transitionDef{
	TransitionTLR:       {"TLR", MustPattern([]byte{0x1F}, 5), StateRunTestIdle, StateTestLogicReset},
	TransitionTLRToRTI:  {"TLR->RTI", MustPattern([]byte{0x1F}, 6), StateShiftDR, StateRunTestIdle},
	TransitionTLRToSDR:  {"TLR->SDR", MustPattern([]byte{0x5F, 0x00}, 9), StateUpdateIR, StateShiftDR},
	TransitionSDRToRTI:  {"SDR->RTI", MustPattern([]byte{0x03}, 3), StateShiftDR, StateRunTestIdle},
	TransitionRTIToSDR:  {"RTI->SDR", MustPattern([]byte{0x01}, 3), StateRunTestIdle, StateShiftDR},
	TransitionE1DRToSDR: {"E1DR->SDR", MustPattern([]byte{0x02}, 3), StateExit1DR, StateShiftDR},
	TransitionE1DRToRTI: {"E1DR->RTI", MustPattern([]byte{0x06}, 4), StateExit1DR, StateRunTestIdle},
}

func (t Transition) String() string {
	if int(t) < len(transitionDefs) {
		return transitionDefs[t].name
	}
	return fmt.Sprintf("Transition(%d)", t)
}

// Endpoints returns a representative start state and the state the walk ends
// in. Walks that begin with five TMS=1 clocks start anywhere.
func (t Transition) Endpoints() (from, to State) {
	d := transitionDefs[t]
	return d.from, d.to
}

// Transitions lists every canonical walk in declaration order.
func Transitions() []Transition {
	out := make([]Transition, len(transitionDefs))
	for i := range out {
		out[i] = Transition(i)
	}
	return out
}

// Table maps each canonical walk to its encoding for one protocol.
type Table struct {
	name     string
	patterns [len(transitionDefs)]Pattern
}

// Name identifies the table in logs.
func (t *Table) Name() string {
	return t.name
}

// Pattern returns the encoding of tr.
func (t *Table) Pattern(tr Transition) Pattern {
	return t.patterns[tr]
}

// StandardTable carries the plain TMS form consumed by TMS-only shifters.
var StandardTable = buildTable("standard", func(p Pattern) Pattern { return p })

// AdvancedTable carries the same walks pair encoded for shifters that take a
// combined TDI/TMS stream.
var AdvancedTable = buildTable("advanced", Pattern.Interleave)

func buildTable(name string, encode func(Pattern) Pattern) *Table {
	t := &Table{name: name}
	for i, d := range transitionDefs {
		t.patterns[i] = encode(d.tms)
	}
	return t
}
