package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/ryanmoran/bubble/internal"
)

// CredentialsPath is where WriteCredentials stores the secret, relative to the
// container user's home directory.
const CredentialsPath = "${HOME}/.claude/.credentials.json"

const writeCredentialsScript = `mkdir -p "${HOME}/.claude" && cat > "` + CredentialsPath + `" && chmod 600 "` + CredentialsPath + `"`

// ExecInteractiveShell opens shell in the container attached to the caller's
// terminal. It blocks until the shell exits and returns its exit code, or 1
// when the code cannot be determined.
func (c Client) ExecInteractiveShell(ctx context.Context, containerID, shell string) (int, error) {
	c.writer.Info("launching interactive shell", "container", containerID, "shell", shell)
	return c.execInteractive(ctx, containerID, internal.Command{shell})
}

// ExecInteractiveCommand runs command in the container attached to the caller's
// terminal. It blocks until the command exits.
func (c Client) ExecInteractiveCommand(ctx context.Context, containerID string, command internal.Command) (int, error) {
	c.writer.Info("launching interactive command", "container", containerID, "command", []string(command))
	return c.execInteractive(ctx, containerID, command)
}

func (c Client) execInteractive(ctx context.Context, containerID string, command internal.Command) (int, error) {
	args := []string{"exec", "-i"}
	if c.isTerminal() {
		args = append(args, "-t")
	}
	args = append(args, containerID)
	args = append(args, command...)

	cmd := c.command(ctx, c.binary, args...)
	cmd.Stdin = c.stdin
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr

	return exitStatus(cmd.Run(), containerID)
}

// ExecCommand runs command in the container without a TTY, with standard
// output and error inherited.
func (c Client) ExecCommand(ctx context.Context, containerID string, command internal.Command) (int, error) {
	c.writer.Info("running command", "container", containerID, "command", []string(command))

	cmd := c.command(ctx, c.binary, execArgs(containerID, false, command)...)
	cmd.Stdin = c.stdin
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr

	return exitStatus(cmd.Run(), containerID)
}

// RunInContainer runs command in the container without a TTY. Standard output
// and error are inherited; stdin is attached only when non-nil.
func (c Client) RunInContainer(ctx context.Context, containerID string, command internal.Command, stdin io.Reader) (int, error) {
	cmd := c.command(ctx, c.binary, execArgs(containerID, stdin != nil, command)...)
	cmd.Stdin = stdin
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr

	return exitStatus(cmd.Run(), containerID)
}

// WriteCredentials stores secret at CredentialsPath inside the container with
// mode 0600. The secret travels over the exec's stdin and never appears in a
// process argument list.
func (c Client) WriteCredentials(ctx context.Context, containerID, secret string) error {
	var stderr bytes.Buffer

	cmd := c.command(ctx, c.binary, execArgs(containerID, true, internal.Command{"sh", "-c", writeCredentialsScript})...)
	cmd.Stdin = strings.NewReader(secret)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to write credentials to container %q: %w: %s", containerID, err, strings.TrimSpace(stderr.String()))
	}

	c.writer.Info("credentials written", "container", containerID)
	return nil
}

func execArgs(containerID string, interactive bool, command internal.Command) []string {
	args := []string{"exec"}
	if interactive {
		args = append(args, "-i")
	}
	args = append(args, containerID)
	return append(args, command...)
}

// exitStatus converts the result of running a docker CLI command into the exit
// code of the process inside the container. A non-zero exit is not an error;
// failing to start the CLI is.
func exitStatus(err error, containerID string) (int, error) {
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		return 1, nil
	}

	return 1, fmt.Errorf("failed to exec in container %q: %w\nEnsure the docker CLI is installed and on PATH", containerID, err)
}
