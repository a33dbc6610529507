// Package driver implements the top-level execution loop: compile once,
// then run the five event programs around a stream-of-records reading
// loop.
package driver

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mna/zed/lang/ast"
	"github.com/mna/zed/lang/compiler"
	"github.com/mna/zed/lang/machine"
	"github.com/mna/zed/lang/parser"
	"github.com/mna/zed/lang/token"
)

// Diagnostic is a single compile- or run-time failure, already formatted
// with its source position as "<filename>:<line>:<col>: <msg>".
type Diagnostic struct {
	Filename string
	Pos      string
	Msg      string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s:%s: %s", d.Filename, d.Pos, d.Msg)
}

// Options configures one driver run.
type Options struct {
	ProgramFile string
	DataFiles   []string
	Stdout      io.Writer
	Stderr      io.Writer
	Stdin       io.Reader
}

// Run loads ProgramFile (compiling it, or reading it directly if it ends
// in .zbc), then executes the five-event lifecycle against
// Options.DataFiles. It returns a non-nil error (always a *Diagnostic) on
// the first compile or runtime failure.
func Run(opts Options) error {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	prog, src, err := load(opts.ProgramFile)
	if err != nil {
		return &Diagnostic{Filename: opts.ProgramFile, Pos: formatPos(src, offsetOf(err)), Msg: err.Error()}
	}

	var outBuf bytes.Buffer
	globals := machine.NewGlobals()
	th := machine.NewThread(globals)
	th.Stdout = &outBuf
	th.Stderr = stderr

	runtimeErr := func(off ast.Offset, err error) error {
		return &Diagnostic{
			Filename: opts.ProgramFile,
			Pos:      formatPos(src, off),
			Msg:      err.Error(),
		}
	}

	events := prog.Events()
	if err := th.Run(events[ast.EventInit]); err != nil {
		return runtimeErr(offsetOf(err), err)
	}

	for _, filename := range opts.DataFiles {
		if err := processFile(th, globals, events, filename, &outBuf, opts.Stdin); err != nil {
			if d, ok := err.(*Diagnostic); ok {
				return d
			}
			return runtimeErr(offsetOf(err), err)
		}
	}

	if err := th.Run(events[ast.EventExit]); err != nil {
		return runtimeErr(offsetOf(err), err)
	}

	_, err = stdout.Write(outBuf.Bytes())
	return err
}

func processFile(th *machine.Thread, g *machine.Globals, events [5][]byte, filename string, outBuf *bytes.Buffer, stdin io.Reader) error {
	var r io.Reader
	if filename == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		r = stdin
	} else {
		f, err := os.Open(filename)
		if err != nil {
			return &Diagnostic{Filename: filename, Pos: "-", Msg: err.Error()}
		}
		defer f.Close()
		r = f
	}

	g.File = filename
	g.Frnum = 1
	if err := th.Run(events[ast.EventFile]); err != nil {
		return err
	}

	reader := bufio.NewReader(r)
	for {
		rec, err := readRecord(reader, recordDelim(g.Irs))
		if rec == "" && err == io.EOF {
			break
		}
		g.Rec = rec

		before := outBuf.Len()
		if err := th.Run(events[ast.EventRec]); err != nil {
			return err
		}
		g.Cols = splitColumns(g.Rec, g.Ics)
		if err := th.Run(events[ast.EventRules]); err != nil {
			return err
		}
		if outBuf.Len() > before {
			outBuf.WriteString(g.Ors)
		}

		g.Rnum++
		g.Frnum++
		if err == io.EOF {
			break
		}
	}
	return nil
}

// recordDelim returns the first byte of irs: records split on "@irs[0]",
// a single delimiter byte, not the full string.
func recordDelim(irs string) byte {
	if irs == "" {
		return '\n'
	}
	return irs[0]
}

func readRecord(r *bufio.Reader, delim byte) (string, error) {
	line, err := r.ReadString(delim)
	if err != nil {
		return strings.TrimSuffix(line, string(delim)), err
	}
	return strings.TrimSuffix(line, string(delim)), nil
}

func splitColumns(rec, ics string) []machine.Value {
	if ics == "" {
		ics = ","
	}
	parts := strings.Split(rec, ics)
	cols := make([]machine.Value, len(parts))
	for i, p := range parts {
		cols[i] = machine.Str(p)
	}
	return cols
}

// load reads filename, dispatching on its extension: a ".zbc" file is
// read directly as precompiled bytecode, anything else is scanned, parsed
// and compiled. The raw source (empty for a .zbc file) is returned for
// offset-to-position diagnostics.
func load(filename string) (*compiler.Program, []byte, error) {
	if strings.HasSuffix(filename, ".zbc") {
		f, err := os.Open(filename)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		p, err := compiler.ReadZBC(f)
		return p, nil, err
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, err
	}
	astProg, err := parser.Parse(src)
	if err != nil {
		return nil, src, err
	}
	p, err := compiler.CompileProgram(astProg)
	return p, src, err
}

func offsetOf(err error) ast.Offset {
	switch e := err.(type) {
	case *compiler.Error:
		return e.Offset
	case *machine.RuntimeError:
		return e.Offset
	case *parser.Error:
		return e.Offset
	default:
		return 0
	}
}

func formatPos(src []byte, off ast.Offset) string {
	if src == nil {
		return "-"
	}
	pos := token.PosFromOffset(src, off)
	return fmt.Sprintf("%d:%d", pos.Line, pos.Col)
}
