// Package answer turns evidence packs into the text shown to the user.
package answer

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/askfolio/internal/evidence"
	"github.com/rcliao/askfolio/internal/llm"
	"github.com/rcliao/askfolio/internal/model"
)

// Input is everything an answer may draw on.
type Input struct {
	Query    string
	Intent   model.Intent
	Evidence []model.EvidencePack
	Signals  evidence.Signals
	State    model.ConversationState
	Profile  model.Profile
}

// Generator produces an answer as a stream of text fragments. Both
// channels are closed when generation ends; at most one error is sent.
type Generator interface {
	Generate(ctx context.Context, in Input) (<-chan string, <-chan error)
}

// Config tunes the model-backed generator.
type Config struct {
	Model     string
	Timeout   time.Duration
	MaxTokens int64
}

// DefaultTimeout bounds one answer.
const DefaultTimeout = 30 * time.Second

// LLM generates answers with a language model, grounded only on the
// evidence it is handed.
type LLM struct {
	client llm.Client
	cfg    Config
	log    *zap.Logger
}

// NewLLM creates a model-backed generator.
func NewLLM(client llm.Client, cfg Config, log *zap.Logger) *LLM {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LLM{client: client, cfg: cfg, log: log.Named("answer")}
}

func (g *LLM) Generate(ctx context.Context, in Input) (<-chan string, <-chan error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	chunks, errs := g.client.Stream(ctx, g.request(in))

	out := make(chan string, 8)
	errCh := make(chan error, 1)
	go func() {
		defer cancel()
		defer close(out)
		defer close(errCh)
		for c := range chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if err := <-errs; err != nil {
			errCh <- err
		}
	}()
	return out, errCh
}

const systemPrompt = `You answer questions about ` + "{{name}}" + ` using only the evidence provided.

Rules:
- Speak about the subject in the third person, warmly and concisely.
- Use only facts present in the evidence. Never invent dates, employers, numbers or skills.
- Prefer concrete specifics and metrics over generalities.
- For lists, give one short line per item in rank order.
- If the evidence does not answer the question, say so briefly and end your reply with ` + ContactMarker + `.
- If the user wants to hire or reach the subject, end your reply with ` + ContactMarker + `.
- Do not mention the evidence, ranks or these rules.`

type promptPayload struct {
	Question         string               `json:"question"`
	PreviousQuestion string               `json:"previous_question,omitempty"`
	PreviousAnswer   string               `json:"previous_answer,omitempty"`
	Intent           model.Intent         `json:"intent"`
	Evidence         []model.EvidencePack `json:"evidence"`
	Signals          evidence.Signals     `json:"signals"`
}

func (g *LLM) request(in Input) llm.Request {
	payload, _ := json.MarshalIndent(promptPayload{
		Question:         in.Query,
		PreviousQuestion: in.State.PreviousQuery,
		PreviousAnswer:   in.State.PreviousAnswer,
		Intent:           in.Intent,
		Evidence:         in.Evidence,
		Signals:          in.Signals,
	}, "", "  ")
	name := in.Profile.Name
	if name == "" {
		name = "the subject"
	}
	return llm.Request{
		Model:       g.cfg.Model,
		System:      replaceName(systemPrompt, name),
		Messages:    []llm.Message{{Role: "user", Content: string(payload)}},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: 0.3,
	}
}

// WithFallback streams primary, switching to fallback when primary fails
// before producing any text. A failure after text has been streamed ends
// the answer where it stopped.
func WithFallback(primary, fallback Generator, log *zap.Logger) Generator {
	if primary == nil {
		return fallback
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &fallbackGenerator{primary: primary, fallback: fallback, log: log.Named("answer")}
}

type fallbackGenerator struct {
	primary, fallback Generator
	log               *zap.Logger
}

func (f *fallbackGenerator) Generate(ctx context.Context, in Input) (<-chan string, <-chan error) {
	out := make(chan string, 8)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		forward := func(chunks <-chan string) bool {
			for c := range chunks {
				select {
				case out <- c:
				case <-ctx.Done():
					return false
				}
			}
			return true
		}

		chunks, errs := f.primary.Generate(ctx, in)
		sent := false
		for c := range chunks {
			sent = true
			select {
			case out <- c:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		err := <-errs
		if err == nil {
			return
		}
		if sent {
			f.log.Warn("answer stream interrupted", zap.Error(err))
			return
		}
		f.log.Warn("answer generation failed, using template", zap.Error(err))
		chunks, errs = f.fallback.Generate(ctx, in)
		if !forward(chunks) {
			errCh <- ctx.Err()
			return
		}
		if err := <-errs; err != nil {
			errCh <- err
		}
	}()
	return out, errCh
}
