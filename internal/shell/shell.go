// Package shell picks the interactive shell for the dev container and finds
// the host dotfiles mounted into it.
package shell

import (
	"os"
	"path/filepath"
)

// ContainerHome is the dev user's home directory inside the container.
const ContainerHome = "/home/dev"

const fallback = "bash"

// Dotfiles are mounted read-only when present in the host home directory.
var Dotfiles = []string{
	".zshrc",
	".bashrc",
	".bash_profile",
	".profile",
	".aliases",
	".inputrc",
	".vimrc",
	".gitconfig",
	".tmux.conf",
}

// Detect returns the base name of $SHELL, or bash when it is unset.
func Detect(getenv func(string) string) string {
	sh := getenv("SHELL")
	if sh == "" {
		return fallback
	}
	name := filepath.Base(sh)
	if name == "." || name == string(filepath.Separator) {
		return fallback
	}
	return name
}

// Resolve returns the configured shell when set, otherwise the detected one.
func Resolve(configured string, getenv func(string) string) string {
	if configured != "" {
		return configured
	}
	return Detect(getenv)
}

// DotfileMounts returns host:container:ro bind specs for every dotfile that
// exists in home, in Dotfiles order.
func DotfileMounts(home string) []string {
	if home == "" {
		return nil
	}

	var mounts []string
	for _, name := range Dotfiles {
		hostPath := filepath.Join(home, name)
		if _, err := os.Stat(hostPath); err != nil {
			continue
		}
		mounts = append(mounts, hostPath+":"+ContainerHome+"/"+name+":ro")
	}
	return mounts
}
