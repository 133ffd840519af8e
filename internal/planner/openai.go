package planner

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIOptions configures the OpenAI planner.
type OpenAIOptions struct {
	Model     openai.ChatModel
	MaxTokens int64
	APIKey    string
}

// OpenAIPlanner asks a chat-completion model for a plan.
type OpenAIPlanner struct {
	client openai.Client
	opts   OpenAIOptions
}

// NewOpenAIPlanner creates a planner backed by the official OpenAI client.
// Without an explicit key the client reads OPENAI_API_KEY.
func NewOpenAIPlanner(optFns ...func(o *OpenAIOptions)) *OpenAIPlanner {
	opts := OpenAIOptions{
		Model:     openai.ChatModelGPT4o,
		MaxTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	return &OpenAIPlanner{
		client: openai.NewClient(clientOpts...),
		opts:   opts,
	}
}

// Plan implements Planner.
func (p *OpenAIPlanner) Plan(ctx context.Context, goal string) (*Plan, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage("Goal: " + goal),
		},
		MaxCompletionTokens: openai.Int(p.opts.MaxTokens),
	})
	if err != nil {
		return nil, &PlanningError{Provider: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &PlanningError{Provider: "openai", Err: fmt.Errorf("empty response")}
	}

	plan, err := parsePlan(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, &PlanningError{Provider: "openai", Err: err}
	}
	if plan.Goal == "" {
		plan.Goal = goal
	}
	return plan, nil
}
