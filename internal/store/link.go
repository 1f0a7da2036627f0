package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"

	"github.com/rcliao/askfolio/internal/model"
)

// RelSharesSkill links two items that reference at least one common skill.
const RelSharesSkill = "shares_skill"

// Link represents a relation between two items.
type Link struct {
	FromID string   `json:"from_id"`
	ToID   string   `json:"to_id"`
	Rel    string   `json:"rel"`
	Weight float64  `json:"weight"`
	Shared []string `json:"shared,omitempty"`
}

// DeriveLinks links every pair of non-skill items sharing skills, in both
// directions, keeping the perItem strongest links for each source item.
// Weight is the number of shared skills.
func DeriveLinks(items []model.Item, perItem int) []Link {
	if perItem <= 0 {
		perItem = 5
	}
	type entry struct {
		id     string
		skills map[string]bool
	}
	var entries []entry
	for _, it := range items {
		if it.ItemKind() == model.KindSkill {
			continue
		}
		set := make(map[string]bool)
		for _, sk := range model.SkillIDs(it) {
			set[sk] = true
		}
		if len(set) > 0 {
			entries = append(entries, entry{id: it.ItemID(), skills: set})
		}
	}

	var out []Link
	for i, a := range entries {
		var links []Link
		for j, b := range entries {
			if i == j {
				continue
			}
			var shared []string
			for sk := range a.skills {
				if b.skills[sk] {
					shared = append(shared, sk)
				}
			}
			if len(shared) == 0 {
				continue
			}
			sort.Strings(shared)
			links = append(links, Link{
				FromID: a.id, ToID: b.id, Rel: RelSharesSkill,
				Weight: float64(len(shared)), Shared: shared,
			})
		}
		sort.SliceStable(links, func(x, y int) bool {
			if links[x].Weight != links[y].Weight {
				return links[x].Weight > links[y].Weight
			}
			return links[x].ToID < links[y].ToID
		})
		if len(links) > perItem {
			links = links[:perItem]
		}
		out = append(out, links...)
	}
	return out
}

// GetLinks returns the outgoing links of an item, strongest first.
func (s *SQLiteStore) GetLinks(ctx context.Context, itemID string) ([]Link, error) {
	return s.queryLinks(ctx,
		`SELECT from_id, to_id, rel, weight, shared FROM item_links
		 WHERE from_id = ? ORDER BY weight DESC, to_id`, itemID)
}

func (s *SQLiteStore) LoadLinks(ctx context.Context) ([]Link, error) {
	return s.queryLinks(ctx,
		`SELECT from_id, to_id, rel, weight, shared FROM item_links
		 ORDER BY from_id, weight DESC, to_id`)
}

func (s *SQLiteStore) queryLinks(ctx context.Context, query string, args ...any) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		var shared sql.NullString
		if err := rows.Scan(&l.FromID, &l.ToID, &l.Rel, &l.Weight, &shared); err != nil {
			return nil, err
		}
		if shared.Valid {
			json.Unmarshal([]byte(shared.String), &l.Shared)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
