package compiler

// Program holds the five independently-decodable byte strings produced by
// CompileProgram, one per lifecycle event, in fixed order: init, file,
// rec, rules, exit. It is the only handoff between the compiler and the
// VM.
type Program struct {
	Init  []byte
	File  []byte
	Rec   []byte
	Rules []byte
	Exit  []byte
}

// Events returns the five byte strings in their fixed compiled order.
func (p *Program) Events() [5][]byte {
	return [5][]byte{p.Init, p.File, p.Rec, p.Rules, p.Exit}
}

// FromEvents rebuilds a Program from the fixed-order slice produced by
// Events, e.g. after a round trip through the .zbc format.
func FromEvents(events [5][]byte) *Program {
	return &Program{
		Init:  events[0],
		File:  events[1],
		Rec:   events[2],
		Rules: events[3],
		Exit:  events[4],
	}
}
