package compiler

// Builtin is the 1-byte id embedded in a BUILTIN instruction. Names here
// are resolved at compile time; the VM dispatches on the id, never the
// name, so the builtin table doubles as the ABI between compiler and VM.
type Builtin uint8

//nolint:revive
const (
	BuiltinPrint Builtin = iota
	BuiltinLength
	BuiltinSubstr
	BuiltinSplit
	BuiltinSprintf
	BuiltinToInt
	BuiltinToFloat
	BuiltinToString
)

var builtinNames = map[string]Builtin{
	"print":    BuiltinPrint,
	"length":   BuiltinLength,
	"substr":   BuiltinSubstr,
	"split":    BuiltinSplit,
	"sprintf":  BuiltinSprintf,
	"int":      BuiltinToInt,
	"float":    BuiltinToFloat,
	"string":   BuiltinToString,
}

// LookupBuiltin returns the Builtin id for name and true, or false if name
// does not name a builtin function.
func LookupBuiltin(name string) (Builtin, bool) {
	b, ok := builtinNames[name]
	return b, ok
}
