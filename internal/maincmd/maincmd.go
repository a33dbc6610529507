// Package maincmd wires the zed CLI's flag parsing to lang/driver: a
// mainer.Cmd value whose exported fields are flags, and a Main method
// mainer.Parser drives.
package maincmd

import (
	"fmt"

	"github.com/mna/mainer"
	"github.com/mna/zed/lang/driver"
)

const binName = "zed"

var (
	shortUsage = fmt.Sprintf(`
usage: %s <program-file> [<data-file>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <program-file> [<data-file>...]
       %[1]s -h|--help
       %[1]s -v|--version

Compiles <program-file> (or loads it directly if its name ends in .zbc)
and runs it over the given data files, in order. A data file named "-"
reads from standard input. With no data files, only the onInit and onExit
events run.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
`, binName)
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args []string
}

func (c *Cmd) SetArgs(args []string) { c.args = args }

func (c *Cmd) SetFlags(map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return fmt.Errorf("no program file specified")
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	err := driver.Run(driver.Options{
		ProgramFile: c.args[0],
		DataFiles:   c.args[1:],
		Stdout:      stdio.Stdout,
		Stderr:      stdio.Stderr,
		Stdin:       stdio.Stdin,
	})
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return mainer.Failure
	}
	return mainer.Success
}
