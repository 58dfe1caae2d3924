package decision

import (
	"context"
	"encoding/json"
	"fmt"

	"sitewire_backend/platform/config"

	openai "github.com/sashabaranov/go-openai"
)

// Decider is the decision service contract consumed by the engine.
type Decider interface {
	Decide(ctx context.Context, dc Context) (Payload, error)
}

const systemPrompt = `You are the action decision service for a construction CRM.
Given the project context, decide whether an automated action is warranted.
Respond with ONLY a single JSON object, no prose, in this shape:
{"decision":"ACTION_NEEDED|NO_ACTION|SET_FUTURE_REMINDER|REQUEST_HUMAN_REVIEW|QUERY_KNOWLEDGE_BASE","reason":"...","action_type":"message|data_update|set_future_reminder|escalation|human_in_loop|knowledge_query","action_payload":{},"days_until_check":7,"check_reason":"..."}
Only "decision" and "reason" are required; include the other fields when relevant.`

// Client calls an OpenAI-compatible chat completion API and parses the
// response into a decision payload.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a decision service client from configuration.
func NewClient(cfg config.DecisionConfig) *Client {
	clientConfig := openai.DefaultConfig(cfg.GetDecisionAPIKey())
	if cfg.GetDecisionBaseURL() != "" {
		clientConfig.BaseURL = cfg.GetDecisionBaseURL()
	}

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.GetDecisionModel(),
	}
}

// Decide sends the decision context and parses the structured response.
func (c *Client) Decide(ctx context.Context, dc Context) (Payload, error) {
	contextJSON, err := json.Marshal(dc)
	if err != nil {
		return Payload{}, fmt.Errorf("marshal decision context: %w", err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(contextJSON)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Payload{}, fmt.Errorf("decision service call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Payload{Decision: DecisionUnparsable, Reason: "empty response"}, ErrUnparsable
	}

	return Parse(resp.Choices[0].Message.Content)
}

var _ Decider = (*Client)(nil)
