// Package repl provides the remote-evaluation channel to the live runtime.
// The channel exposes exactly two modes: evaluate an expression and return
// its printed result synchronously, or deliver it to a callback.
package repl

import "context"

// Client is the remote evaluation channel.
type Client interface {
	// Connected reports whether the channel can currently evaluate.
	Connected() bool
	// EvalSync evaluates expr in the remote runtime and returns its
	// printed result.
	EvalSync(ctx context.Context, expr string) (string, error)
	// EvalAsync evaluates expr without blocking the caller; the printed
	// result or error is delivered to callback.
	EvalAsync(ctx context.Context, expr string, callback func(result string, err error))
	// Close tears the channel down.
	Close() error
}
