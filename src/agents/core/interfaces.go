package core

import "context"

// Agent is one long-running background worker under supervision.
type Agent interface {
	ID() string
	Synopsis() string
	// Start performs quick preparation and must not block on the work loop.
	Start(ctx context.Context) error
	// Run blocks until Stop is called or the context is cancelled. It
	// returns nil for a requested stop and an error when the work loop
	// fails, so supervisors can branch on a typed outcome.
	Run(ctx context.Context) error
	// Stop asks Run to return and waits for it, bounded by ctx.
	Stop(ctx context.Context) error
	Running() bool
	StopRequested() bool
}
