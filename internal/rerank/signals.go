package rerank

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rcliao/askfolio/internal/filter"
	"github.com/rcliao/askfolio/internal/textnorm"
)

var yearsAgoRe = regexp.MustCompile(`\b(\d{1,2}|one|two|three|four|five|six|seven|eight|nine|ten) years? ago\b`)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// YearHints returns the years a query points at: explicit years plus
// relative phrases such as "last year" or "3 years ago".
func YearHints(query string, now time.Time) []int {
	norm := textnorm.Normalize(query)
	hints := filter.Years(norm)
	add := func(y int) {
		for _, h := range hints {
			if h == y {
				return
			}
		}
		hints = append(hints, y)
	}
	if textnorm.ContainsPhrase(norm, "this year") {
		add(now.Year())
	}
	if textnorm.ContainsPhrase(norm, "last year") {
		add(now.Year() - 1)
	}
	for _, m := range yearsAgoRe.FindAllStringSubmatch(norm, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			n = numberWords[m[1]]
		}
		add(now.Year() - n)
	}
	if textnorm.ContainsAny(norm, "recent", "recently", "currently", "lately", "these days", "latest", "now") {
		add(now.Year())
	}
	return hints
}

var technicalQueryTerms = []string{
	"technical", "technically", "architecture", "algorithm", "algorithms",
	"system", "systems", "scale", "scaling", "infrastructure", "engineering",
	"complex", "hardest", "challenging", "challenge", "performance", "ml",
	"machine learning", "ai", "distributed", "backend", "deep dive",
}

// IsTechnicalQuery reports whether the query asks about technical depth.
func IsTechnicalQuery(query string) bool {
	return textnorm.ContainsAny(textnorm.Normalize(query), technicalQueryTerms...)
}

var complexityTerms = []struct {
	weight float64
	terms  []string
}{
	{3, []string{"machine learning", "ml", "ai", "llm", "neural", "deep learning", "pytorch",
		"embedding", "embeddings", "inference", "transformer", "transformers", "gpu", "model serving", "rag"}},
	{2, []string{"algorithm", "algorithms", "optimization", "mixed integer", "graph", "ranking",
		"classifier", "scheduling", "retrieval", "search"}},
	{1.5, []string{"scale", "scaled", "distributed", "million", "throughput", "latency",
		"kubernetes", "pipeline", "pipelines", "events per day", "10m"}},
	{1, []string{"kernel", "memory", "compiler", "concurrency", "cuda", "low level", "networking"}},
}

// TechnicalComplexity sums the weights of the technical terms in text,
// counting each term once.
func TechnicalComplexity(text string) float64 {
	norm := textnorm.Normalize(strings.ReplaceAll(text, "_", " "))
	var score float64
	for _, group := range complexityTerms {
		for _, t := range group.terms {
			if textnorm.ContainsPhrase(norm, t) {
				score += group.weight
			}
		}
	}
	return score
}
