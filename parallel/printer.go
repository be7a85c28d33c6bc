package parallel

import (
	"io"
	"log"
	"os"
)

type Printer func(format string, args ...interface{})

// NewPrinter returns a Printf that only writes on rank 0. A nil out writes
// to stdout.
func NewPrinter(comm Communicator, out io.Writer, prefix string) Printer {
	if comm.Rank() != 0 {
		return func(string, ...interface{}) {}
	}
	if out == nil {
		out = os.Stdout
	}
	logger := log.New(out, prefix+": ", 0)
	return func(format string, args ...interface{}) {
		logger.Printf(format, args...)
	}
}
