package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
	"github.com/bryanwahyu/cnav/internal/domain/prompts"
	"github.com/bryanwahyu/cnav/internal/infra/ai/prompt"
)

const (
	defaultModel      = "gpt-4.1"
	generateMaxTokens = 4096
	suggestMaxTokens  = 512
	gapMaxTokens      = 4096
	narrateMaxTokens  = 4096
)

type Client struct {
	*openai.Client
	Model       string
	Temperature float32
}

var (
	_ prompts.Generator     = (*Client)(nil)
	_ evaluations.Suggester = (*Client)(nil)
	_ evaluations.Analyst   = (*Client)(nil)
)

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model, Temperature: 0.1}
}

// NewClientWithBaseURL points the client at a compatible endpoint (proxy, local model, test server).
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model, Temperature: 0.1}
}

func (c *Client) model() string {
	if c.Model == "" {
		return defaultModel
	}
	return c.Model
}

// reasoning models (o1/o3/o4/gpt-5*) take MaxCompletionTokens and no temperature
func isReasoning(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func (c *Client) complete(ctx context.Context, system, user string, jsonOut bool, maxTokens int) (string, error) {
	model := c.model()
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	if jsonOut {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	if isReasoning(model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
		req.Temperature = c.Temperature
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err, model)
	}
	if len(resp.Choices) == 0 {
		return "", goerr.New("empty chat completion", goerr.V("model", model))
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps provider rate/quota errors to errs.ErrQuotaExceeded.
func classify(err error, model string) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			status = http.StatusTooManyRequests
		}
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests {
		return goerr.Wrap(errs.ErrQuotaExceeded, err.Error(), goerr.V("model", model))
	}
	return goerr.Wrap(err, "failed to create chat completion", goerr.V("model", model), goerr.V("status", status))
}

// GeneratePrompt asks the model for the evaluation criteria of one provision.
func (c *Client) GeneratePrompt(ctx context.Context, in prompts.ClauseInput) (string, error) {
	out, err := c.complete(ctx, prompt.GenerationSystemPrompt(), prompt.GenerationUserPrompt(in), false, generateMaxTokens)
	if err != nil {
		return "", goerr.Wrap(err, "prompt generation failed", goerr.V("provision_id", in.ProvisionID))
	}
	if strings.TrimSpace(out) == "" {
		return "", goerr.New("model returned an empty prompt", goerr.V("provision_id", in.ProvisionID))
	}
	return out, nil
}

// Suggest asks the model for a pass/fail/pending proposal on one answer.
func (c *Client) Suggest(ctx context.Context, in evaluations.SuggestInput) (*evaluations.Suggestion, error) {
	out, err := c.complete(ctx, prompt.EvaluationSystemPrompt(in.ClausePrompts), prompt.EvaluationUserPrompt(in), true, suggestMaxTokens)
	if err != nil {
		return nil, goerr.Wrap(err, "suggestion failed", goerr.V("question_id", in.QuestionID))
	}
	return prompt.ParseSuggestion(in.QuestionID, out)
}

// AnalyzeGaps asks the model for remediation advice on the computed gaps.
func (c *Client) AnalyzeGaps(ctx context.Context, in evaluations.GapInput) (*evaluations.GapAdvice, error) {
	out, err := c.complete(ctx, prompt.GapSystemPrompt(), prompt.GapUserPrompt(in), true, gapMaxTokens)
	if err != nil {
		return nil, goerr.Wrap(err, "gap analysis failed", goerr.V("organization_id", in.Analysis.Organization.ID))
	}
	return prompt.ParseGapAdvice(out)
}

// Narrate writes a markdown report for one audience.
func (c *Client) Narrate(ctx context.Context, in evaluations.NarrativeInput) (string, error) {
	out, err := c.complete(ctx, prompt.NarrativeSystemPrompt(in.Audience), prompt.NarrativeUserPrompt(in), false, narrateMaxTokens)
	if err != nil {
		return "", goerr.Wrap(err, "narrative failed", goerr.V("audience", in.Audience))
	}
	if strings.TrimSpace(out) == "" {
		return "", goerr.New("model returned an empty narrative", goerr.V("audience", in.Audience))
	}
	return out, nil
}
