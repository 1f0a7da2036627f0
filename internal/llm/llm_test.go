package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type out struct {
		Intent string `json:"intent"`
	}
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare", `{"intent":"general"}`, "general", false},
		{"fenced", "```json\n{\"intent\":\"contact\"}\n```", "contact", false},
		{"prose", `Sure! Here you go: {"intent":"personal","note":"a } in a string"} hope it helps`, "personal", false},
		{"nested", `{"intent":"filter_query","filters":{"type":["project"]}} trailing`, "filter_query", false},
		{"empty", "", "", true},
		{"no object", "I cannot answer that", "", true},
		{"unbalanced", `{"intent":"general"`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o out
			err := DecodeJSON(tt.in, &o)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, o.Intent)
		})
	}
}

func TestScripted_RepliesInOrder(t *testing.T) {
	s := NewScripted("one", "two")
	ctx := context.Background()
	for _, want := range []string{"one", "two", "two"} {
		got, err := s.Chat(ctx, Request{})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 3, s.Calls())
}

func TestScripted_Error(t *testing.T) {
	boom := errors.New("boom")
	s := &Scripted{Replies: []string{"x"}, Err: boom}
	_, err := s.Chat(context.Background(), Request{})
	assert.ErrorIs(t, err, boom)
}

func TestChatTimeout(t *testing.T) {
	s := &Scripted{Replies: []string{"late"}, Delay: time.Second}
	_, err := ChatTimeout(context.Background(), s, Request{}, 20*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScripted_Stream(t *testing.T) {
	s := NewScripted("hello there world")
	out, errCh := s.Stream(context.Background(), Request{})
	var b strings.Builder
	for chunk := range out {
		b.WriteString(chunk)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "hello there world", b.String())
}

func TestNew(t *testing.T) {
	c, err := New(Config{Provider: "none"})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(Config{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, c)

	c, err = New(Config{Provider: "anthropic", APIKey: "k", Model: "claude-x"})
	require.NoError(t, err)
	require.IsType(t, &Anthropic{}, c)
	assert.Equal(t, "claude-x", c.(*Anthropic).opts.Model)

	_, err = New(Config{Provider: "bogus"})
	assert.Error(t, err)
}

func TestStreamFromChat(t *testing.T) {
	s := NewScripted("the whole reply in one piece")
	out, errs := streamFromChat(context.Background(), s, Request{})

	var got []string
	for chunk := range out {
		got = append(got, chunk)
	}
	require.NoError(t, <-errs)
	assert.Equal(t, []string{"the whole reply in one piece"}, got)

	s = &Scripted{Err: errors.New("overloaded")}
	out, errs = streamFromChat(context.Background(), s, Request{})
	for range out {
		t.Fatal("no fragment expected on error")
	}
	assert.EqualError(t, <-errs, "overloaded")
}
