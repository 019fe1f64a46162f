// Package docker provides container engine operations for bubble.
//
// It handles content-addressed image builds, the session bridge network,
// dev and service containers, exec sessions through the docker CLI, and the
// sweep of resources left behind by earlier sessions. The Client type is the
// main entry point for all engine operations.
package docker
