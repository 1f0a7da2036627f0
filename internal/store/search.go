package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Search finds items whose indexed text or passages contain the query
// substring, case-insensitively.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	q := strings.TrimSpace(p.Query)
	if q == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(q) + "%"

	where := []string{"(i.search_text LIKE ? ESCAPE '\\' OR i.id LIKE ? ESCAPE '\\' OR ps.text LIKE ? ESCAPE '\\')"}
	args := []any{pattern, pattern, pattern}
	if p.Kind != "" {
		where = append(where, "i.kind = ?")
		args = append(args, string(p.Kind))
	}

	query := fmt.Sprintf(`
		SELECT i.id, i.kind, i.data, ps.text
		FROM items i
		LEFT JOIN passages ps ON ps.item_id = i.id AND ps.text LIKE ? ESCAPE '\'
		WHERE %s
		ORDER BY i.seq, ps.seq
		LIMIT ?`, strings.Join(where, " AND "))
	args = append([]any{pattern}, args...)
	args = append(args, limit*4)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	seen := map[string]bool{}
	for rows.Next() {
		var id, kind, data string
		var passage sql.NullString
		if err := rows.Scan(&id, &kind, &data, &passage); err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		it, err := decodeItem(kind, data)
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{Item: it, MatchPassage: passage.String})
		if len(results) == limit {
			break
		}
	}
	return results, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
