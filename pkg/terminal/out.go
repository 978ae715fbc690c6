package terminal

import (
	"io"

	"github.com/mattn/go-colorable"
)

// getColorableWriter returns a writer that translates ANSI escape
// sequences when the console needs it, and stdout otherwise.
func getColorableWriter() io.Writer {
	return colorable.NewColorableStdout()
}
