// Package llm adapts generative model providers behind one small interface
// used for query classification and answer generation.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral chat request.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	ForceJSON   bool
	MaxTokens   int64
	Temperature float64
}

// Client is a generative model.
type Client interface {
	// Chat returns the complete reply.
	Chat(ctx context.Context, req Request) (string, error)
	// Stream emits reply fragments as they arrive. Both channels are closed
	// when generation ends; at most one error is sent.
	Stream(ctx context.Context, req Request) (<-chan string, <-chan error)
}

// Options configure a provider adapter.
type Options struct {
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
}

// Config selects a provider.
type Config struct {
	Provider string // "none" | "openai" | "anthropic"
	Model    string
	APIKey   string
	BaseURL  string
}

// New builds a client from cfg. It returns (nil, nil) when no provider is
// configured; callers then use their deterministic fallbacks.
func New(cfg Config) (Client, error) {
	set := func(o *Options) {
		if cfg.Model != "" {
			o.Model = cfg.Model
		}
		o.APIKey = cfg.APIKey
		o.BaseURL = cfg.BaseURL
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "none":
		return nil, nil
	case "openai":
		return NewOpenAI(set), nil
	case "anthropic":
		return NewAnthropic(set), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// ErrEmpty is returned when a model replies with no text.
var ErrEmpty = errors.New("empty model response")

// ChatTimeout runs c.Chat under its own deadline.
func ChatTimeout(ctx context.Context, c Client, req Request, d time.Duration) (string, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return c.Chat(ctx, req)
}

// DecodeJSON unmarshals the first JSON object found in text into v. Models
// asked for JSON still wrap it in code fences or prose often enough that a
// strict decode is not usable.
func DecodeJSON(text string, v any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmpty
	}
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}
	obj, ok := firstObject(text)
	if !ok {
		return fmt.Errorf("no json object in response")
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// firstObject returns the first balanced {...} block, skipping braces
// inside string literals.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case esc:
			esc = false
		case inStr && c == '\\':
			esc = true
		case c == '"':
			inStr = !inStr
		case inStr:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// streamFromChat adapts a one-shot Chat into the streaming contract.
func streamFromChat(ctx context.Context, c interface {
	Chat(context.Context, Request) (string, error)
}, req Request) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		text, err := c.Chat(ctx, req)
		if err != nil {
			errCh <- err
			return
		}
		select {
		case out <- text:
		case <-ctx.Done():
			errCh <- ctx.Err()
		}
	}()
	return out, errCh
}
