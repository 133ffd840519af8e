package planner

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicOptions configures the Anthropic planner.
type AnthropicOptions struct {
	Model     anthropic.Model
	MaxTokens int64
	APIKey    string
}

// AnthropicPlanner asks Claude for a plan via the Messages API.
type AnthropicPlanner struct {
	client anthropic.Client
	opts   AnthropicOptions
}

// NewAnthropicPlanner creates a planner backed by the official Anthropic
// client. Without an explicit key the client reads ANTHROPIC_API_KEY.
func NewAnthropicPlanner(optFns ...func(o *AnthropicOptions)) *AnthropicPlanner {
	opts := AnthropicOptions{
		Model:     anthropic.ModelClaudeSonnet4_20250514,
		MaxTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	return &AnthropicPlanner{
		client: anthropic.NewClient(clientOpts...),
		opts:   opts,
	}
}

// Plan implements Planner.
func (p *AnthropicPlanner) Plan(ctx context.Context, goal string) (*Plan, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.opts.Model,
		MaxTokens: p.opts.MaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Goal: " + goal)),
		},
	})
	if err != nil {
		return nil, &PlanningError{Provider: "anthropic", Err: err}
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}

	plan, err := parsePlan(sb.String())
	if err != nil {
		return nil, &PlanningError{Provider: "anthropic", Err: err}
	}
	if plan.Goal == "" {
		plan.Goal = goal
	}
	return plan, nil
}
