// Package state records build history in a SQLite database.
package state

import (
	"context"
	"time"
)

// BuildStatus is the outcome of a recorded build.
type BuildStatus string

// Build outcomes.
const (
	BuildStatusSuccess BuildStatus = "success"
	BuildStatusFailed  BuildStatus = "failed"
)

// Build is one recorded `frame build` run.
type Build struct {
	ID          string
	Mode        string
	Environment string
	Status      BuildStatus
	StartedAt   time.Time
	Duration    time.Duration
	Assets      int
	Pages       int
	Bytes       int
	Error       string
}

// Store persists build history.
type Store interface {
	RecordBuild(ctx context.Context, b *Build) error
	ListBuilds(ctx context.Context, limit int) ([]*Build, error)
	Close() error
}
