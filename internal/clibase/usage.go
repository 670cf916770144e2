// internal/clibase/usage.go
package clibase

import (
	"flag"
	"fmt"
	"io"

	"github.com/bioswarm/cactus/internal/version"
)

// UsageCommon installs a Usage handler printing a shared header, the
// tool-specific extra block and every registered flag.
func UsageCommon(fs *flag.FlagSet, name, summary string, extra func(out io.Writer)) {
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "%s – %s\n\n", name, summary)
		fmt.Fprintf(out, "Version: %s\n\n", version.Version)
		if extra != nil {
			extra(out)
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, "Flags:")
		fs.PrintDefaults()
	}
}
