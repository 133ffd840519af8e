package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/stridelabs/stride/internal/sandbox"
	"github.com/stridelabs/stride/internal/session"
)

// CodeSource produces source text for an action description. The engine
// treats the produced string as opaque; it only captures the execution
// outcome. Typically backed by a code-generation model.
type CodeSource interface {
	Generate(ctx context.Context, action string) (string, error)
}

// CodeSourceFunc adapts a function to CodeSource.
type CodeSourceFunc func(ctx context.Context, action string) (string, error)

// Generate implements CodeSource.
func (f CodeSourceFunc) Generate(ctx context.Context, action string) (string, error) {
	return f(ctx, action)
}

// CodeAct executes source code through the sandbox executor. Plans either
// supply the code verbatim ("code") or describe the action ("action") and
// let the configured code source produce it.
type CodeAct struct {
	executor sandbox.Executor
	source   CodeSource // nil when only verbatim code is supported
}

// NewCodeAct creates the code execution tool.
func NewCodeAct(executor sandbox.Executor, source CodeSource) *CodeAct {
	return &CodeAct{executor: executor, source: source}
}

func (c *CodeAct) Name() string { return "codeact" }

func (c *CodeAct) Description() string {
	return "Execute code in the session sandbox with a bounded runtime"
}

func (c *CodeAct) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code":   map[string]any{"type": "string", "description": "Source text to execute"},
			"action": map[string]any{"type": "string", "description": "What the generated code should do"},
		},
	}
}

// Invoke implements Tool. Sandbox timeouts and faults come back as failed
// results, never as process-level faults.
func (c *CodeAct) Invoke(ctx context.Context, args map[string]any) Result {
	code := stringArg(args, "code")
	if code == "" {
		action := stringArg(args, "action")
		if action == "" {
			return Fail(CodeBadArguments, "neither code nor action provided")
		}
		if c.source == nil {
			return Fail(CodeBadArguments, "no code generator configured; provide code directly")
		}
		generated, err := c.source.Generate(ctx, action)
		if err != nil {
			return Fail(CodeRemote, "code generation failed: %v", err)
		}
		code = generated
	}

	res := c.executor.Execute(ctx, code)
	output := combineOutput(res.Stdout, res.Stderr)

	switch res.Status {
	case sandbox.StatusCompleted:
		return Result{Success: true, Output: output}
	case sandbox.StatusTimedOut:
		return Result{
			Success: false,
			Output:  output,
			Error:   &session.ToolError{Code: CodeSandboxTime, Message: res.Message},
		}
	default:
		return Result{
			Success: false,
			Output:  output,
			Error: &session.ToolError{
				Code:    CodeSandboxFault,
				Message: fmt.Sprintf("%s (exit %d)", res.Message, res.ExitCode),
			},
		}
	}
}

func combineOutput(stdout, stderr string) string {
	stdout = strings.TrimRight(stdout, "\n")
	stderr = strings.TrimRight(stderr, "\n")
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return "stderr: " + stderr
	}
	return stdout + "\nstderr: " + stderr
}
