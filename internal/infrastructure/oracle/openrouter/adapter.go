// Package openrouter implements the vision oracle on top of OpenRouter's
// OpenAI-compatible chat API.
package openrouter

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

var _ output.OraclePort = (*Adapter)(nil)

type Adapter struct {
	client *openai.Client
	model  string
	logger output.LoggerPort
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  output.LoggerPort
}

func DefaultConfig(apiKey, model string) Config {
	return Config{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://openrouter.ai/api/v1",
	}
}

func New(cfg Config) *Adapter {
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL

	return &Adapter{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

func (a *Adapter) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (a *Adapter) AnalyzeLogin(ctx context.Context, snap *entity.Snapshot) (*output.LoginFields, error) {
	raw, err := a.complete(ctx, loginAnalysisPrompt, snapshotBlock(snap))
	if err != nil {
		return nil, err
	}

	var fields output.LoginFields
	if err := decodeStrict(raw, &fields); err != nil {
		return nil, fmt.Errorf("login analysis: %w", err)
	}
	if fields.UsernameSelector == "" || fields.PasswordSelector == "" {
		return nil, fmt.Errorf("login analysis: response names no credential fields")
	}
	return &fields, nil
}

func (a *Adapter) NextAction(ctx context.Context, snap *entity.Snapshot, instruction string) (*output.ActionProposal, error) {
	user := fmt.Sprintf("Instruction:\n%s\n\n%s", instruction, snapshotBlock(snap))
	raw, err := a.complete(ctx, nextActionPrompt, user)
	if err != nil {
		return nil, err
	}

	var proposal output.ActionProposal
	if err := decodeStrict(raw, &proposal); err != nil {
		return nil, fmt.Errorf("next action: %w", err)
	}
	if err := validateProposal(&proposal); err != nil {
		return nil, fmt.Errorf("next action: %w", err)
	}

	if a.logger != nil {
		a.logger.Debug("Oracle proposal", "kind", proposal.Kind, "selector", proposal.Selector, "done", proposal.Done, "confidence", proposal.Confidence)
	}
	return &proposal, nil
}

func (a *Adapter) VerifyCompletion(ctx context.Context, snap *entity.Snapshot, criteria string) (*output.Verdict, error) {
	user := fmt.Sprintf("Success criteria:\n%s\n\n%s", criteria, snapshotBlock(snap))
	raw, err := a.complete(ctx, verifyCompletionPrompt, user)
	if err != nil {
		return nil, err
	}

	var verdict output.Verdict
	if err := decodeStrict(raw, &verdict); err != nil {
		return nil, fmt.Errorf("completion check: %w", err)
	}
	return &verdict, nil
}

// validateProposal enforces the tagged contract: a non-terminal proposal
// must carry a known verb, and every verb except wait needs a selector.
func validateProposal(p *output.ActionProposal) error {
	if p.Done {
		return nil
	}
	switch p.Kind {
	case entity.ActionClick, entity.ActionFill, entity.ActionSelect:
		if p.Selector == "" {
			return fmt.Errorf("proposal %q carries no selector", p.Kind)
		}
	case entity.ActionWait:
		if p.WaitMs <= 0 {
			return fmt.Errorf("wait proposal carries no duration")
		}
	default:
		return fmt.Errorf("unknown action kind %q", p.Kind)
	}
	return nil
}

// snapshotBlock renders what the oracle sees: location, interactive
// elements, then the cleaned markup.
func snapshotBlock(snap *entity.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "URL: %s\nTitle: %s\n", snap.URL, snap.Title)

	if len(snap.UIElements) > 0 {
		sb.WriteString("\nInteractive elements:\n")
		for _, el := range snap.UIElements {
			fmt.Fprintf(&sb, "- [%s] %s %q selector=%s\n", el.ID, el.Type, el.Text, el.Selector)
		}
	}

	if snap.HTML != "" {
		sb.WriteString("\nHTML:\n")
		sb.WriteString(snap.HTML)
	}
	return sb.String()
}
