package internal

// ImageTag represents a content-addressed image reference such as "bubble:0123456789ab".
type ImageTag string

// Command represents the command and arguments to execute in the container.
type Command []string

// Environment represents environment variables to pass to the container.
// Entries are KEY=VALUE strings; duplicate keys are allowed and later entries win.
type Environment []string

// Mode selects what a session runs inside the dev container.
type Mode int

const (
	// ModeShell opens an interactive login shell.
	ModeShell Mode = iota

	// ModeInteractiveCommand runs a command attached to the terminal.
	ModeInteractiveCommand

	// ModeCommand runs a scripted command without a TTY.
	ModeCommand
)
