// Package internal contains shared types and utilities for bubble.
//
// It provides layered configuration loading, project session naming, the
// cleanup registry that releases session resources exactly once, and the
// Writer abstraction used for output across the docker, hooks and lifecycle
// packages.
package internal
