package internal

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	// NamePrefix is the prefix of every container, network and volume name.
	NamePrefix = "bubble"

	// LabelProject and LabelSession are attached to every created container and network.
	LabelProject = "dev.bubble.project"
	LabelSession = "dev.bubble.session"

	defaultProject = "project"
)

// Session identifies one invocation: the project it runs for and a random id
// used to label the resources it creates. Names derived from a Session are
// stable for the whole invocation and never persisted.
type Session struct {
	project string
	id      string
}

// NewSession creates a session for the given project name. An empty name falls
// back to "project".
func NewSession(project string) Session {
	if project == "" || project == "." || project == string(filepath.Separator) {
		project = defaultProject
	}
	return Session{
		project: project,
		id:      uuid.NewString(),
	}
}

// String returns the project-scoped resource prefix, equivalent to calling Prefix().
func (s Session) String() string {
	return s.Prefix()
}

// Project returns the project name.
func (s Session) Project() string {
	return s.project
}

// ID returns the random session identifier used for resource labels.
func (s Session) ID() string {
	return s.id
}

// Prefix returns "bubble-<project>". Stale sweeps match this prefix exactly or
// followed by a dash.
func (s Session) Prefix() string {
	return fmt.Sprintf("%s-%s", NamePrefix, s.project)
}

// ContainerName returns the default dev container name.
func (s Session) ContainerName() string {
	return s.Prefix()
}

// NetworkName returns the default bridge network name.
func (s Session) NetworkName() string {
	return s.Prefix()
}

// Labels returns the labels attached to resources created by this session.
func (s Session) Labels() map[string]string {
	return map[string]string{
		LabelProject: s.project,
		LabelSession: s.id,
	}
}
