package tap

import (
	"fmt"
)

// State represents one of the 16 defined IEEE 1149.1 TAP controller states.
type State uint8

const (
	StateTestLogicReset State = iota
	StateRunTestIdle
	StateSelectDRScan
	StateCaptureDR
	StateShiftDR
	StateExit1DR
	StatePauseDR
	StateExit2DR
	StateUpdateDR
	StateSelectIRScan
	StateCaptureIR
	StateShiftIR
	StateExit1IR
	StatePauseIR
	StateExit2IR
	StateUpdateIR
)

var stateNames = [...]string{
	StateTestLogicReset: "TLR",
	StateRunTestIdle:    "RTI",
	StateSelectDRScan:   "SelDR",
	StateCaptureDR:      "CDR",
	StateShiftDR:        "SDR",
	StateExit1DR:        "E1DR",
	StatePauseDR:        "PDR",
	StateExit2DR:        "E2DR",
	StateUpdateDR:       "UDR",
	StateSelectIRScan:   "SelIR",
	StateCaptureIR:      "CIR",
	StateShiftIR:        "SIR",
	StateExit1IR:        "E1IR",
	StatePauseIR:        "PIR",
	StateExit2IR:        "E2IR",
	StateUpdateIR:       "UIR",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// IsDR reports whether s belongs to the data register column of the diagram.
func (s State) IsDR() bool {
	return s >= StateSelectDRScan && s <= StateUpdateDR
}

type stateTransitions struct {
	onZero State
	onOne  State
}

var transitions = [...]stateTransitions{
	StateTestLogicReset: {onZero: StateRunTestIdle, onOne: StateTestLogicReset},
	StateRunTestIdle:    {onZero: StateRunTestIdle, onOne: StateSelectDRScan},
	StateSelectDRScan:   {onZero: StateCaptureDR, onOne: StateSelectIRScan},
	StateCaptureDR:      {onZero: StateShiftDR, onOne: StateExit1DR},
	StateShiftDR:        {onZero: StateShiftDR, onOne: StateExit1DR},
	StateExit1DR:        {onZero: StatePauseDR, onOne: StateUpdateDR},
	StatePauseDR:        {onZero: StatePauseDR, onOne: StateExit2DR},
	StateExit2DR:        {onZero: StateShiftDR, onOne: StateUpdateDR},
	StateUpdateDR:       {onZero: StateRunTestIdle, onOne: StateSelectDRScan},
	StateSelectIRScan:   {onZero: StateCaptureIR, onOne: StateTestLogicReset},
	StateCaptureIR:      {onZero: StateShiftIR, onOne: StateExit1IR},
	StateShiftIR:        {onZero: StateShiftIR, onOne: StateExit1IR},
	StateExit1IR:        {onZero: StatePauseIR, onOne: StateUpdateIR},
	StatePauseIR:        {onZero: StatePauseIR, onOne: StateExit2IR},
	StateExit2IR:        {onZero: StateShiftIR, onOne: StateUpdateIR},
	StateUpdateIR:       {onZero: StateRunTestIdle, onOne: StateSelectDRScan},
}

// NextState returns the next TAP state after clocking TCK with the provided TMS
// value. It panics if an invalid state is supplied, which should never happen
// when interacting through the exported API.
func NextState(current State, tms bool) State {
	if int(current) >= len(transitions) {
		panic(fmt.Sprintf("tap: unhandled state %d", current))
	}
	row := transitions[current]
	if tms {
		return row.onOne
	}
	return row.onZero
}

// Walk clocks every bit of p starting from state from and returns the state
// the controller ends in.
func Walk(from State, p Pattern) State {
	state := from
	for i := 0; i < p.Len(); i++ {
		state = NextState(state, p.Bit(i))
	}
	return state
}

// StateMachine tracks the TAP controller state locally. It does not perform any
// I/O; callers feed it the same TMS bits they send to the hardware.
type StateMachine struct {
	state State
}

// NewStateMachine creates a TAP state machine initialized to Test-Logic-Reset.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateTestLogicReset}
}

// State reports the current TAP state tracked by the machine.
func (m *StateMachine) State() State {
	return m.state
}

// Clock advances the machine one TCK cycle with the provided TMS bit and
// returns the new state.
func (m *StateMachine) Clock(tms bool) State {
	m.state = NextState(m.state, tms)
	return m.state
}

// Apply clocks the whole pattern and returns the visited states, starting
// with the state held before the first bit.
func (m *StateMachine) Apply(p Pattern) []State {
	visited := make([]State, 0, p.Len()+1)
	visited = append(visited, m.state)
	for i := 0; i < p.Len(); i++ {
		visited = append(visited, m.Clock(p.Bit(i)))
	}
	return visited
}

// Reset forces the machine into Test-Logic-Reset, the state five TMS=1 clocks
// reach from anywhere in the diagram.
func (m *StateMachine) Reset() {
	m.state = StateTestLogicReset
}
