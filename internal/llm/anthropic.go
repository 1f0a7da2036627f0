package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic wraps the Messages API.
type Anthropic struct {
	client *anthropic.Client
	opts   Options
}

var _ Client = (*Anthropic)(nil)

// NewAnthropic creates an adapter using the official client.
func NewAnthropic(optFns ...func(o *Options)) *Anthropic {
	opts := Options{
		Model:       string(anthropic.ModelClaude3_5Sonnet20241022),
		MaxTokens:   1024,
		Temperature: 0.2,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)
	return &Anthropic{client: &client, opts: opts}
}

func (m *Anthropic) Chat(ctx context.Context, req Request) (string, error) {
	model := m.opts.Model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := m.opts.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	temp := m.opts.Temperature
	if req.ForceJSON {
		temp = 0
	} else if req.Temperature > 0 {
		temp = req.Temperature
	}

	var system []anthropic.TextBlockParam
	if req.System != "" {
		system = append(system, anthropic.TextBlockParam{Text: req.System})
	}
	var messages []anthropic.MessageParam
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	if req.ForceJSON {
		// The Messages API has no JSON mode; prefilling the assistant turn
		// with "{" keeps the reply a bare object.
		messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock("{")))
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temp),
	}
	if len(system) > 0 {
		params.System = system
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}
	text := b.String()
	if text == "" {
		return "", ErrEmpty
	}
	if req.ForceJSON && !strings.HasPrefix(strings.TrimSpace(text), "{") {
		text = "{" + text
	}
	return text, nil
}

// Stream delivers the complete reply as a single fragment. Answers are
// short enough that the caller's streaming contract is met without
// incremental deltas.
func (m *Anthropic) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	return streamFromChat(ctx, m, req)
}
