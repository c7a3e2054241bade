// Package middleware provides composable cross-cutting wrappers applied
// around each execution attempt.
//
// The engine always installs Recover as the outermost layer; hosts add
// Tracing, Metrics, Logging, or their own middleware with
// engine.WithMiddleware. Chain composes middleware right-to-left so the
// first listed middleware is the outermost wrapper. Recover stays first
// so panics anywhere in the chain (or the executor) are converted to
// terminal errors instead of killing the worker slot.
package middleware
