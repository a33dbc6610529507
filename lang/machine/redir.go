package machine

import "os"

// writeRedir implements the redir opcode's file-writing side effect:
// truncate-then-write when clobber is set, append otherwise.
func writeRedir(filename, content string, clobber bool, wrapErr func(error) error) error {
	flags := os.O_WRONLY | os.O_CREATE
	if clobber {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	f, err := os.OpenFile(filename, flags, 0o644)
	if err != nil {
		return wrapErr(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return wrapErr(err)
	}
	return nil
}
