package evidence

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/askfolio/internal/kbtest"
	"github.com/rcliao/askfolio/internal/model"
)

func TestExtractMetrics(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  []string
	}{
		{"percent and count", []string{"cut latency by 40% for 1,200 users"}, []string{"40%", "1,200 users"}},
		{"currency beats suffix", []string{"saved $200k per year"}, []string{"$200k"}},
		{"suffix and multiplier", []string{"trained on 50k tickets, 3x better"}, []string{"50k", "3x"}},
		{"large number word", []string{"10M events per day"}, []string{"10M"}},
		{"capped and deduplicated", []string{"10% then 10% then 20%", "30% and 40%"}, []string{"10%", "20%", "30%"}},
		{"none", []string{"no numbers here", "p99 is a name"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ExtractMetrics(tt.texts...)); diff != "" {
				t.Errorf("ExtractMetrics mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("  short ", 10))

	long := strings.Repeat("é", 400)
	got := Truncate(long, MaxSummary)
	assert.Equal(t, MaxSummary, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestAssemble(t *testing.T) {
	ranked := []model.Item{
		kbtest.ByID(t, "proj_portfolio"),
		kbtest.ByID(t, "exp_veson"),
		kbtest.ByID(t, "cls_ml"),
	}
	packs := Assemble(ranked)
	require.Len(t, packs, 3)

	p := packs[0]
	assert.Equal(t, 1, p.Rank)
	assert.Equal(t, "Portfolio Assistant", p.Title)
	assert.Len(t, p.Specifics, MaxSpecifics, "four specifics are cut to three")
	assert.Equal(t, "2024-01 - present", p.Dates)
	assert.Equal(t, []string{"40%", "1,200 users"}, p.Metrics)
	assert.Equal(t, "https://github.com/rileychen/askfolio", p.URL)

	assert.Equal(t, []string{"10M", "$200k"}, packs[1].Metrics)
	assert.Equal(t, "Fall 2021", packs[2].Dates)
	assert.Equal(t, 3, packs[2].Rank)
}

func TestAssemble_DoesNotAliasItems(t *testing.T) {
	it := kbtest.ByID(t, "proj_portfolio")
	packs := Assemble([]model.Item{it})
	packs[0].Skills[0] = "changed"
	assert.Equal(t, "go", it.Core().Skills[0])
}

func lookup(t *testing.T) Lookup {
	return func(id string) (model.Item, bool) {
		for _, it := range kbtest.Items(t) {
			if it.ItemID() == id {
				return it, true
			}
		}
		return nil, false
	}
}

func TestCompute(t *testing.T) {
	packs := Assemble([]model.Item{kbtest.ByID(t, "proj_router"), kbtest.ByID(t, "exp_veson")})
	s := Compute(packs, lookup(t), kbtest.Now)

	assert.Equal(t, 2, s.EvidenceCount)
	assert.True(t, s.HasMetrics)
	assert.Equal(t, 1.0, s.Coverage)
	assert.True(t, s.EntityLink)
	// proj_router ended 2023-09, 21 months before the reference time.
	assert.Equal(t, 21, s.FreshnessMonths)
	assert.False(t, s.Thin)
}

func TestCompute_Thin(t *testing.T) {
	assert.True(t, Compute(nil, lookup(t), kbtest.Now).Thin)

	packs := Assemble([]model.Item{kbtest.ByID(t, "interest_climbing")})
	s := Compute(packs, lookup(t), kbtest.Now)
	assert.True(t, s.Thin)
	assert.Equal(t, -1, s.FreshnessMonths)
	assert.False(t, s.EntityLink)
}

func TestMonthsSince(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, MonthsSince(now, now))
	assert.Equal(t, 17, MonthsSince(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 0, MonthsSince(now.AddDate(1, 0, 0), now))
}
