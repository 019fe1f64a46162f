package docker_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

type mockWriter struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func newMockWriter() *mockWriter {
	return &mockWriter{buf: &bytes.Buffer{}}
}

func (m *mockWriter) write(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.WriteString(s)
}

func (m *mockWriter) Print(v ...interface{}) { m.write(fmt.Sprint(v...)) }
func (m *mockWriter) Printf(format string, v ...interface{}) {
	m.write(fmt.Sprintf(format, v...))
}
func (m *mockWriter) Println(v ...interface{}) { m.write(fmt.Sprintln(v...)) }
func (m *mockWriter) Warning(v ...interface{}) { m.write("Warning: " + fmt.Sprintln(v...)) }
func (m *mockWriter) Warningf(format string, v ...interface{}) {
	m.write("Warning: " + fmt.Sprintf(format, v...) + "\n")
}
func (m *mockWriter) Info(msg string, keyvals ...interface{})  { m.event("INFO", msg, keyvals) }
func (m *mockWriter) Debug(msg string, keyvals ...interface{}) { m.event("DEBU", msg, keyvals) }
func (m *mockWriter) Warn(msg string, keyvals ...interface{})  { m.event("WARN", msg, keyvals) }
func (m *mockWriter) GetWriter() io.Writer                     { return m.buf }

func (m *mockWriter) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.String()
}

func (m *mockWriter) event(level, msg string, keyvals []interface{}) {
	var b strings.Builder
	b.WriteString(level + " " + msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keyvals[i], keyvals[i+1])
	}
	m.write(b.String() + "\n")
}

// fakeDocker records docker CLI invocations and replaces each with a shell
// command that exits with the next configured code.
type fakeDocker struct {
	mu    sync.Mutex
	calls [][]string
	codes []int
}

func (f *fakeDocker) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, append([]string{name}, args...))

	code := 0
	if len(f.codes) > 0 {
		code = f.codes[0]
		f.codes = f.codes[1:]
	}

	return exec.CommandContext(ctx, "sh", "-c", fmt.Sprintf("exit %d", code))
}

// stdinTo returns a command func whose commands copy their stdin into path.
func (f *fakeDocker) stdinTo(path string) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		f.mu.Lock()
		f.calls = append(f.calls, append([]string{name}, args...))
		f.mu.Unlock()

		return exec.CommandContext(ctx, "sh", "-c", `cat > "$0"`, path)
	}
}

func (f *fakeDocker) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
