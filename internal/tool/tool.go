// Package tool defines the uniform capability contract the agent loop
// dispatches through, plus the built-in capability set. Tools normalize
// every recoverable failure into an unsuccessful Result; only programming
// errors may panic.
package tool

import (
	"context"
	"fmt"

	"github.com/stridelabs/stride/internal/session"
)

// Error codes carried by failed results.
const (
	CodeBadArguments = "bad_arguments"
	CodeNotFound     = "not_found"
	CodeUnknownTool  = "unknown_tool"
	CodeTimeout      = "timeout"
	CodeRemote       = "remote_error"
	CodeSandboxTime  = "sandbox_timeout"
	CodeSandboxFault = "sandbox_fault"
	CodeInternal     = "internal"
)

// Result is the single outcome every invocation produces, success or not.
// The loop turns it into an observation event verbatim.
type Result struct {
	Success   bool
	Output    string
	Artifacts []string
	Error     *session.ToolError
}

// Tool is a named capability with a self-describing parameter schema.
//
// Invoke must not return recoverable failures through panics or Go errors;
// bad arguments, missing targets and remote timeouts all come back as a
// Result with Success=false and a structured Error. The context carries
// the per-invocation deadline; implementations doing IO must honor it.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Invoke(ctx context.Context, args map[string]any) Result
}

// Ok builds a successful result.
func Ok(output string, artifacts ...string) Result {
	return Result{Success: true, Output: output, Artifacts: artifacts}
}

// Fail builds an unsuccessful result with a structured error.
func Fail(code, format string, args ...any) Result {
	return Result{
		Success: false,
		Error:   &session.ToolError{Code: code, Message: fmt.Sprintf(format, args...)},
	}
}

// stringArg extracts a string argument, tolerating absence.
func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// intArg extracts an integer argument; JSON numbers decode as float64.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
