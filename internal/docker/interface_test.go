package docker_test

import (
	"github.com/moby/moby/client"

	"github.com/ryanmoran/bubble/internal"
	"github.com/ryanmoran/bubble/internal/docker"
)

// Compile-time check that *client.Client implements DockerClient interface
var _ docker.DockerClient = (*client.Client)(nil)

// Compile-time check that Client can release session resources
var _ internal.Teardowner = docker.Client{}
