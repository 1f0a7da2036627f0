package filter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/textnorm"
)

// vocabulary maps words and phrases (normalized, singular) to the kinds
// they ask for.
var vocabulary = []struct {
	kind    model.Kind
	phrases []string
}{
	{model.KindProject, []string{"project", "side project", "app", "application", "repo"}},
	{model.KindExperience, []string{"job", "role", "position", "employer", "work experience", "worked at", "career", "internship"}},
	{model.KindClass, []string{"class", "course", "coursework", "took"}},
	{model.KindWriting, []string{"article", "blog", "post", "wrote", "writing", "essay"}},
	{model.KindStory, []string{"story", "anecdote"}},
	{model.KindValue, []string{"value", "principle"}},
	{model.KindInterest, []string{"hobby", "interest"}},
	{model.KindEducation, []string{"degree", "education", "university", "college", "studied"}},
	{model.KindSkill, []string{"skill", "technology", "tech stack", "language"}},
	{model.KindBio, []string{"bio", "background"}},
}

// buildVerbs ask for things made, which are either projects or jobs.
var buildVerbs = []string{"built", "build", "created", "create", "made", "developed", "shipped"}

// personalKinds back a personal question that names no kind.
var personalKinds = []model.Kind{model.KindBio, model.KindStory, model.KindValue, model.KindInterest}

// InferTypes returns the kinds an already normalized query asks for, in
// vocabulary order. A build verb with no kind word yields project and
// experience.
func InferTypes(norm string) []model.Kind {
	sing := singularize(norm)
	var out []model.Kind
	for _, v := range vocabulary {
		for _, p := range v.phrases {
			if textnorm.ContainsPhrase(sing, p) || textnorm.ContainsPhrase(norm, p) {
				out = append(out, v.kind)
				break
			}
		}
	}
	if len(out) == 0 && textnorm.ContainsAny(norm, buildVerbs...) {
		out = []model.Kind{model.KindProject, model.KindExperience}
	}
	return out
}

// IsBuildQuestion reports whether the query asks what was built or made.
func IsBuildQuestion(norm string) bool {
	return textnorm.ContainsAny(norm, buildVerbs...)
}

func singularize(norm string) string {
	toks := textnorm.Tokens(norm)
	for i, t := range toks {
		toks[i] = textnorm.Singular(t)
	}
	return strings.Join(toks, " ")
}

var yearRe = regexp.MustCompile(`\b(19[5-9]\d|20\d\d)\b`)

// Years returns the distinct four-digit years written in s.
func Years(s string) []int {
	var out []int
	seen := map[int]bool{}
	for _, m := range yearRe.FindAllString(s, -1) {
		y, _ := strconv.Atoi(m)
		if !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	return out
}
