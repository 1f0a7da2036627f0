// Package intent classifies a query: a deterministic pre-router first, then
// a structured model call, with a fixed fallback when the model fails.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/askfolio/internal/llm"
	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/textnorm"
)

// Source records which stage produced a classification.
type Source string

const (
	SourceSkip     Source = "skip"
	SourceRule     Source = "rule"
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Classification is the classifier output.
type Classification struct {
	Intent  model.Intent
	Filters *model.QueryFilter
	// AboutSubject is false when the query has nothing to do with the
	// person the knowledge base describes.
	AboutSubject bool
	// Evaluative marks queries asking for a judgement ("best", "vs").
	Evaluative bool
	Source     Source
	Rule       string
}

// Input is what the classifier sees.
type Input struct {
	Query         string
	PreviousQuery string
	// Intent and Filters, when both set, bypass classification.
	Intent  model.Intent
	Filters *model.QueryFilter
}

// Config tunes the model classifier.
type Config struct {
	Model   string
	Timeout time.Duration
}

// DefaultTimeout bounds one classification call.
const DefaultTimeout = 8 * time.Second

// Classifier decides the intent of a query.
type Classifier struct {
	client llm.Client
	cfg    Config
	log    *zap.Logger
}

// New creates a classifier. A nil client leaves only the pre-router and the
// fallback.
func New(client llm.Client, cfg Config, log *zap.Logger) *Classifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{client: client, cfg: cfg, log: log.Named("intent")}
}

// Classify never fails: any model problem yields the general fallback.
func (c *Classifier) Classify(ctx context.Context, in Input) Classification {
	if in.Intent != "" && in.Filters != nil {
		if _, ok := model.ParseIntent(string(in.Intent)); ok {
			return Classification{
				Intent:       in.Intent,
				Filters:      in.Filters.Clone(),
				AboutSubject: true,
				Source:       SourceSkip,
			}
		}
	}

	norm := textnorm.Normalize(in.Query)
	if cl, ok := PreRoute(norm); ok {
		c.log.Debug("pre-routed", zap.String("rule", cl.Rule), zap.String("intent", string(cl.Intent)))
		return cl
	}

	cl, err := c.classifyWithModel(ctx, in)
	if err != nil {
		c.log.Warn("classification failed, using fallback", zap.Error(err))
		return Fallback()
	}
	return cl
}

// Fallback is the classification used when the model cannot be consulted.
func Fallback() Classification {
	return Classification{Intent: model.IntentGeneral, AboutSubject: true, Source: SourceFallback}
}

var errNoClient = errors.New("no classifier model configured")

type modelOutput struct {
	Intent       string             `json:"intent"`
	Filters      *model.QueryFilter `json:"filters"`
	AboutSubject *bool              `json:"about_subject"`
}

func (c *Classifier) classifyWithModel(ctx context.Context, in Input) (Classification, error) {
	if c.client == nil {
		return Classification{}, errNoClient
	}
	payload, err := json.Marshal(promptPayload(in))
	if err != nil {
		return Classification{}, fmt.Errorf("encode payload: %w", err)
	}
	text, err := llm.ChatTimeout(ctx, c.client, llm.Request{
		Model:       c.cfg.Model,
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: string(payload)}},
		ForceJSON:   true,
		MaxTokens:   300,
		Temperature: 0,
	}, c.cfg.Timeout)
	if err != nil {
		return Classification{}, fmt.Errorf("classifier call: %w", err)
	}
	return parseOutput(text)
}

// parseOutput validates the model reply. Unknown intents are rejected,
// unknown kinds are dropped, and a specific_item answer without a title is
// downgraded to general.
func parseOutput(text string) (Classification, error) {
	var out modelOutput
	if err := llm.DecodeJSON(text, &out); err != nil {
		return Classification{}, fmt.Errorf("malformed classifier output: %w", err)
	}
	it, ok := model.ParseIntent(out.Intent)
	if !ok {
		return Classification{}, fmt.Errorf("malformed classifier output: unknown intent %q", out.Intent)
	}
	cl := Classification{Intent: it, Filters: out.Filters, AboutSubject: true, Source: SourceModel}
	if out.AboutSubject != nil {
		cl.AboutSubject = *out.AboutSubject
	}
	switch it {
	case model.IntentContact:
		cl.Filters = nil
	case model.IntentSpecificItem:
		if cl.Filters == nil || cl.Filters.TitleMatch == "" {
			cl.Intent = model.IntentGeneral
		}
	}
	if cl.Filters.IsZero() && (cl.Filters == nil || !cl.Filters.ShowAll) {
		cl.Filters = nil
	}
	return cl, nil
}
