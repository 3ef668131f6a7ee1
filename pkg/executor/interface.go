package executor

import "context"

// Executor defines the interface for executing external commands
type Executor interface {
	// Execute runs name with args and returns its stdout as text
	Execute(ctx context.Context, name string, args ...string) (string, error)
	// Output runs name with args and returns raw stdout bytes
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}
