package internal

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Writer provides methods for output operations that library code needs.
// This allows callers to control where and how output is written, rather than
// forcing library code to use global state like fmt.Print or log.Fatal.
type Writer interface {
	// Print writes a message to the output stream.
	Print(v ...interface{})

	// Printf writes a formatted message to the output stream.
	Printf(format string, v ...interface{})

	// Println writes a message with a newline to the output stream.
	Println(v ...interface{})

	// Warning writes a warning message to the error stream.
	Warning(v ...interface{})

	// Warningf writes a formatted warning message to the error stream.
	Warningf(format string, v ...interface{})

	// Info records a structured informational event.
	Info(msg string, keyvals ...interface{})

	// Debug records a structured event that is only shown in verbose mode.
	Debug(msg string, keyvals ...interface{})

	// Warn records a structured warning event.
	Warn(msg string, keyvals ...interface{})

	// GetWriter returns the underlying io.Writer for direct writing.
	GetWriter() io.Writer
}

// StandardWriter implements Writer using standard output for user-facing output
// and a charmbracelet logger on standard error for events and warnings.
type StandardWriter struct {
	out    io.Writer
	logger *log.Logger
}

// NewStandardWriter creates a Writer that outputs to stdout and logs to stderr.
func NewStandardWriter() *StandardWriter {
	return NewCustomWriter(os.Stdout, os.Stderr)
}

// NewCustomWriter creates a Writer with custom output streams.
// The out stream is used for normal output, while err receives log events and warnings.
func NewCustomWriter(out, err io.Writer) *StandardWriter {
	return &StandardWriter{
		out: out,
		logger: log.NewWithOptions(err, log.Options{
			Prefix: "bubble",
			Level:  log.InfoLevel,
		}),
	}
}

// SetLevel changes the minimum level of structured events. Unknown values fall
// back to info.
func (w *StandardWriter) SetLevel(level string) {
	parsed, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		parsed = log.InfoLevel
	}
	w.logger.SetLevel(parsed)
}

// Print writes a message to the output stream without adding a newline.
func (w *StandardWriter) Print(v ...interface{}) {
	fmt.Fprint(w.out, v...)
}

// Printf writes a formatted message to the output stream.
func (w *StandardWriter) Printf(format string, v ...interface{}) {
	fmt.Fprintf(w.out, format, v...)
}

// Println writes a message with a newline to the output stream.
func (w *StandardWriter) Println(v ...interface{}) {
	fmt.Fprintln(w.out, v...)
}

// Warning writes a warning message to the error stream.
func (w *StandardWriter) Warning(v ...interface{}) {
	w.logger.Warn(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Warningf writes a formatted warning message to the error stream.
func (w *StandardWriter) Warningf(format string, v ...interface{}) {
	w.logger.Warn(fmt.Sprintf(format, v...))
}

// Info logs a structured informational event to the error stream.
func (w *StandardWriter) Info(msg string, keyvals ...interface{}) {
	w.logger.Info(msg, keyvals...)
}

// Debug logs a structured event that is only shown at the DEBUG level.
func (w *StandardWriter) Debug(msg string, keyvals ...interface{}) {
	w.logger.Debug(msg, keyvals...)
}

// Warn logs a structured warning to the error stream.
func (w *StandardWriter) Warn(msg string, keyvals ...interface{}) {
	w.logger.Warn(msg, keyvals...)
}

// Error records a fatal error. It is not part of Writer; only the command
// layer reports errors.
func (w *StandardWriter) Error(msg string, keyvals ...interface{}) {
	w.logger.Error(msg, keyvals...)
}

// GetWriter returns the underlying io.Writer for direct writing to the output stream.
func (w *StandardWriter) GetWriter() io.Writer {
	return w.out
}
