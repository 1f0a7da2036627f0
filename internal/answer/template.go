package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/askfolio/internal/model"
)

// Template renders answers without a model. It is the answerer when no
// provider is configured and the fallback when the model fails.
type Template struct{}

func (Template) Generate(ctx context.Context, in Input) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errCh := make(chan error, 1)
	out <- Render(in)
	close(out)
	close(errCh)
	return out, errCh
}

// Render writes the deterministic answer for in.
func Render(in Input) string {
	if in.Intent == model.IntentContact {
		return Contact(in.Profile)
	}
	if len(in.Evidence) == 0 {
		return NoMatch(nil, in.Profile)
	}

	var b strings.Builder
	if len(in.Evidence) == 1 {
		writeDetail(&b, in.Evidence[0])
	} else {
		b.WriteString("Here is what I found:\n")
		for _, p := range in.Evidence {
			fmt.Fprintf(&b, "\n%d. **%s**", p.Rank, p.Title)
			if p.Dates != "" {
				fmt.Fprintf(&b, " (%s)", p.Dates)
			}
			if s := firstSentence(p.Summary); s != "" {
				b.WriteString(": " + s)
			}
		}
	}
	if in.Signals.Thin {
		b.WriteString("\n\n" + ContactMarker)
	}
	return b.String()
}

func writeDetail(b *strings.Builder, p model.EvidencePack) {
	fmt.Fprintf(b, "**%s**", p.Title)
	if p.Dates != "" {
		fmt.Fprintf(b, " (%s)", p.Dates)
	}
	if p.Summary != "" {
		b.WriteString("\n\n" + p.Summary)
	}
	if len(p.Specifics) > 0 {
		b.WriteString("\n\nHighlights:")
		for _, s := range p.Specifics {
			b.WriteString("\n- " + s)
		}
	}
	if len(p.Metrics) > 0 {
		b.WriteString("\n\nKey numbers: " + strings.Join(p.Metrics, ", "))
	}
	if len(p.Skills) > 0 {
		skills := make([]string, len(p.Skills))
		for i, s := range p.Skills {
			skills[i] = strings.ReplaceAll(s, "_", " ")
		}
		b.WriteString("\n\nSkills: " + strings.Join(skills, ", "))
	}
}

func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}

func subject(p model.Profile) string {
	if f := strings.Fields(p.Name); len(f) > 0 {
		return f[0]
	}
	return "them"
}

// NoMatch explains that nothing matched, naming the filter dimensions
// that ruled everything out.
func NoMatch(reasons []string, p model.Profile) string {
	var b strings.Builder
	b.WriteString("I couldn't find anything that matches your question.")
	if len(reasons) > 0 {
		b.WriteString(" Nothing matches " + strings.Join(reasons, ", and nothing matches ") + ".")
	}
	fmt.Fprintf(&b, " Try asking another way, or reach out to %s directly.", subject(p))
	return b.String()
}

// Clarification asks which of several items the user meant.
func Clarification(names []string) string {
	var b strings.Builder
	b.WriteString("That could refer to more than one thing:\n")
	for i, n := range names {
		fmt.Fprintf(&b, "\n%d. %s", i+1, n)
	}
	b.WriteString("\n\nWhich one did you mean?")
	return b.String()
}

// OffTopic declines questions unrelated to the subject.
func OffTopic(p model.Profile) string {
	return fmt.Sprintf("I can only answer questions about %s and their work. Ask me about projects, experience or background.", subject(p))
}

// Contact tells the user how to reach the subject.
func Contact(p model.Profile) string {
	var ways []string
	if p.Email != "" {
		ways = append(ways, "email "+p.Email)
	}
	if p.LinkedIn != "" {
		ways = append(ways, "connect on LinkedIn")
	}
	if len(ways) == 0 {
		return fmt.Sprintf("The best way to reach %s is to send a message below.", subject(p))
	}
	return fmt.Sprintf("You can reach %s directly: %s, or send a message below.", subject(p), strings.Join(ways, " or "))
}

func replaceName(prompt, name string) string {
	return strings.ReplaceAll(prompt, "{{name}}", name)
}
