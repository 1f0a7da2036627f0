package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Operation governs how multi-valued filter dimensions combine.
type Operation string

const (
	OpContains Operation = "contains"
	OpExact    Operation = "exact"
	OpAny      Operation = "any"
)

// ParseOperation maps a string to an Operation; unknown or empty values
// fall back to contains.
func ParseOperation(s string) Operation {
	switch Operation(strings.ToLower(strings.TrimSpace(s))) {
	case OpExact:
		return OpExact
	case OpAny:
		return OpAny
	}
	return OpContains
}

// QueryFilter restricts the candidate item set.
type QueryFilter struct {
	Types      []Kind    `json:"type,omitempty" yaml:"type,omitempty"`
	Skills     []string  `json:"skills,omitempty" yaml:"skills,omitempty"`
	Company    []string  `json:"company,omitempty" yaml:"company,omitempty"`
	Year       []int     `json:"year,omitempty" yaml:"year,omitempty"`
	Tags       []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	TitleMatch string    `json:"title_match,omitempty" yaml:"title_match,omitempty"`
	Operation  Operation `json:"operation,omitempty" yaml:"operation,omitempty"`
	ShowAll    bool      `json:"show_all,omitempty" yaml:"show_all,omitempty"`
}

// IsZero reports whether the filter restricts nothing.
func (f *QueryFilter) IsZero() bool {
	if f == nil {
		return true
	}
	return len(f.Types) == 0 && len(f.Skills) == 0 && len(f.Company) == 0 &&
		len(f.Year) == 0 && len(f.Tags) == 0 && f.TitleMatch == ""
}

// Clone returns a deep copy. A nil filter clones to nil.
func (f *QueryFilter) Clone() *QueryFilter {
	if f == nil {
		return nil
	}
	c := *f
	c.Types = slices.Clone(f.Types)
	c.Skills = slices.Clone(f.Skills)
	c.Company = slices.Clone(f.Company)
	c.Year = slices.Clone(f.Year)
	c.Tags = slices.Clone(f.Tags)
	return &c
}

// Op returns the effective operation.
func (f *QueryFilter) Op() Operation {
	if f == nil {
		return OpContains
	}
	return ParseOperation(string(f.Operation))
}

// HasType reports whether k is among the requested types.
func (f *QueryFilter) HasType(k Kind) bool {
	return f != nil && slices.Contains(f.Types, k)
}

// UnmarshalJSON accepts a single string or a list for the list-valued
// fields and numeric strings for years, since model output is loose.
func (f *QueryFilter) UnmarshalJSON(data []byte) error {
	var raw struct {
		Types      flexStrings `json:"type"`
		Skills     flexStrings `json:"skills"`
		Company    flexStrings `json:"company"`
		Year       flexInts    `json:"year"`
		Tags       flexStrings `json:"tags"`
		TitleMatch string      `json:"title_match"`
		Operation  string      `json:"operation"`
		ShowAll    bool        `json:"show_all"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = QueryFilter{
		Skills:     raw.Skills,
		Company:    raw.Company,
		Year:       raw.Year,
		Tags:       raw.Tags,
		TitleMatch: strings.TrimSpace(raw.TitleMatch),
		ShowAll:    raw.ShowAll,
	}
	if raw.Operation != "" {
		f.Operation = ParseOperation(raw.Operation)
	}
	for _, t := range raw.Types {
		if k, ok := ParseKind(t); ok && !slices.Contains(f.Types, k) {
			f.Types = append(f.Types, k)
		}
	}
	return nil
}

func (f *QueryFilter) String() string {
	if f == nil {
		return "{}"
	}
	var parts []string
	if len(f.Types) > 0 {
		ks := make([]string, len(f.Types))
		for i, k := range f.Types {
			ks[i] = string(k)
		}
		parts = append(parts, "type="+strings.Join(ks, "|"))
	}
	if f.TitleMatch != "" {
		parts = append(parts, "title_match="+f.TitleMatch)
	}
	if len(f.Skills) > 0 {
		parts = append(parts, "skills="+strings.Join(f.Skills, "|"))
	}
	if len(f.Company) > 0 {
		parts = append(parts, "company="+strings.Join(f.Company, "|"))
	}
	if len(f.Year) > 0 {
		parts = append(parts, fmt.Sprintf("year=%v", f.Year))
	}
	if len(f.Tags) > 0 {
		parts = append(parts, "tags="+strings.Join(f.Tags, "|"))
	}
	if f.ShowAll {
		parts = append(parts, "show_all")
	}
	return "{" + strings.Join(parts, " ") + "}"
}

type flexStrings []string

func (s *flexStrings) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one = strings.TrimSpace(one); one != "" {
			*s = flexStrings{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	out := many[:0]
	for _, v := range many {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	*s = out
	return nil
}

type flexInts []int

func (n *flexInts) UnmarshalJSON(data []byte) error {
	var many []any
	if err := json.Unmarshal(data, &many); err != nil {
		var one any
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		many = []any{one}
	}
	for _, v := range many {
		switch t := v.(type) {
		case float64:
			*n = append(*n, int(t))
		case string:
			if y, _, ok := ParseYearMonth(t); ok {
				*n = append(*n, y)
			}
		}
	}
	return nil
}
