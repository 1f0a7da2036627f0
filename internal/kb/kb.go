// Package kb reads and writes the YAML knowledge-base file.
package kb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/askfolio/internal/model"
)

// Document is the on-disk knowledge base.
type Document struct {
	Version  string
	Profile  model.Profile
	Items    []model.Item
	Rankings []model.ImportanceRanking
}

type rawDocument struct {
	Version  string                    `yaml:"version,omitempty"`
	Profile  model.Profile             `yaml:"profile"`
	Items    []yaml.Node               `yaml:"items"`
	Rankings []model.ImportanceRanking `yaml:"rankings,omitempty"`
}

type outDocument struct {
	Version  string                    `yaml:"version,omitempty"`
	Profile  model.Profile             `yaml:"profile"`
	Items    []model.Item              `yaml:"items"`
	Rankings []model.ImportanceRanking `yaml:"rankings,omitempty"`
}

// Parse decodes and validates a knowledge-base document.
func Parse(data []byte) (*Document, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing knowledge base: %w", err)
	}
	doc := &Document{Version: raw.Version, Profile: raw.Profile, Rankings: raw.Rankings}
	if doc.Version == "" {
		doc.Version = "1.0"
	}
	seen := make(map[string]bool, len(raw.Items))
	for i := range raw.Items {
		it, err := decodeItem(&raw.Items[i])
		if err != nil {
			return nil, fmt.Errorf("item %d (line %d): %w", i, raw.Items[i].Line, err)
		}
		if seen[it.ItemID()] {
			return nil, fmt.Errorf("duplicate item id %q", it.ItemID())
		}
		seen[it.ItemID()] = true
		doc.Items = append(doc.Items, it)
	}
	for _, r := range doc.Rankings {
		if !seen[r.ID] {
			return nil, fmt.Errorf("ranking for unknown item %q", r.ID)
		}
		if r.Score < 0 || r.Score > 100 {
			return nil, fmt.Errorf("ranking for %q out of range: %v", r.ID, r.Score)
		}
	}
	return doc, nil
}

func decodeItem(n *yaml.Node) (model.Item, error) {
	var head struct {
		ID   string `yaml:"id"`
		Kind string `yaml:"kind"`
	}
	if err := n.Decode(&head); err != nil {
		return nil, err
	}
	if head.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	kind := model.Kind(head.Kind)
	if !model.ValidKinds[kind] {
		return nil, fmt.Errorf("item %q: unknown kind %q", head.ID, head.Kind)
	}

	it, err := model.Decode(kind, n.Decode)
	if err != nil {
		return nil, fmt.Errorf("item %q: %w", head.ID, err)
	}
	if it.DisplayName() == "" {
		return nil, fmt.Errorf("item %q: missing display name", head.ID)
	}
	return it, nil
}

// Encode writes doc as YAML.
func Encode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(outDocument{
		Version:  doc.Version,
		Profile:  doc.Profile,
		Items:    doc.Items,
		Rankings: doc.Rankings,
	}); err != nil {
		return fmt.Errorf("encoding knowledge base: %w", err)
	}
	return enc.Close()
}

// Source is a file-backed record store. The file is read once.
type Source struct {
	Path string

	once sync.Once
	doc  *Document
	err  error
}

// NewSource returns a Source reading path.
func NewSource(path string) *Source {
	return &Source{Path: path}
}

// Load reads and parses the file on first use.
func (s *Source) Load() (*Document, error) {
	s.once.Do(func() {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			s.err = fmt.Errorf("reading knowledge base: %w", err)
			return
		}
		s.doc, s.err = Parse(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	})
	return s.doc, s.err
}

func (s *Source) LoadItems(ctx context.Context) ([]model.Item, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	return doc.Items, nil
}

func (s *Source) LoadRankings(ctx context.Context) ([]model.ImportanceRanking, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	return doc.Rankings, nil
}

func (s *Source) LoadProfile(ctx context.Context) (model.Profile, error) {
	doc, err := s.Load()
	if err != nil {
		return model.Profile{}, err
	}
	return doc.Profile, nil
}
