package cmdutil

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
)

// ParseFailure reports a flag parse error. -h/--help prints usage to out
// and exits 0; anything else prints the error and usage to stderr and
// exits 2.
func ParseFailure(fs *flag.FlagSet, err error, out *bufio.Writer, stderr io.Writer) int {
	if errors.Is(err, flag.ErrHelp) {
		fs.SetOutput(out)
		fs.Usage()
		return Flush(out, stderr, ExitOK)
	}
	_, _ = fmt.Fprintln(stderr, err)
	fs.SetOutput(stderr)
	fs.Usage()
	return ExitUsage
}
