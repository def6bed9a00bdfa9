package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_unique_pair",
			SQL: `SELECT lost_item_id, found_item_id, COUNT(*)
                  FROM match_candidates
                  GROUP BY lost_item_id, found_item_id
                  HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_succeeded_items_confirmed",
			SQL: `SELECT c.id FROM match_candidates c
                  JOIN lost_items l ON l.id = c.lost_item_id
                  JOIN found_items f ON f.id = c.found_item_id
                  WHERE c.review_status = 'succeeded'
                    AND (l.status <> 'confirmed' OR f.status <> 'confirmed')`,
		},
		{
			Name: "O3_score_range",
			SQL: `SELECT id, similarity_score FROM match_candidates
                  WHERE similarity_score < 0 OR similarity_score > 100`,
		},
		{
			Name: "O4_single_success_per_item",
			SQL: `SELECT lost_item_id, COUNT(*) FROM match_candidates
                  WHERE review_status = 'succeeded'
                  GROUP BY lost_item_id HAVING COUNT(*) > 1
                  UNION ALL
                  SELECT found_item_id, COUNT(*) FROM match_candidates
                  WHERE review_status = 'succeeded'
                  GROUP BY found_item_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O5_confirmed_has_success",
			SQL: `SELECT l.id FROM lost_items l
                  WHERE l.status = 'confirmed'
                    AND NOT EXISTS (
                        SELECT 1 FROM match_candidates c
                        WHERE c.lost_item_id = l.id AND c.review_status = 'succeeded')
                  UNION ALL
                  SELECT f.id FROM found_items f
                  WHERE f.status = 'confirmed'
                    AND NOT EXISTS (
                        SELECT 1 FROM match_candidates c
                        WHERE c.found_item_id = f.id AND c.review_status = 'succeeded')`,
		},
		{
			Name: "O6_notification_candidate_link",
			SQL: `SELECT n.id FROM notifications n
                  WHERE n.candidate_id IS NOT NULL
                    AND NOT EXISTS (SELECT 1 FROM match_candidates c WHERE c.id = n.candidate_id)`,
		},
		{
			Name: "O7_confirmed_at_tracks_status",
			SQL: `SELECT id, review_status FROM match_candidates
                  WHERE (review_status = 'succeeded' AND confirmed_at IS NULL)
                     OR (review_status = 'unconfirmed' AND confirmed_at IS NOT NULL)`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
