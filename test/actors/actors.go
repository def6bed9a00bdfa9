package actors

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lostfound/auth"
	"lostfound/match"
)

var itemNames = []string{
	"black wallet", "red umbrella", "silver keychain", "blue backpack",
	"leather gloves", "wireless earbuds", "reading glasses", "water bottle",
}

// Reporter keeps submitting new lost and found items for ownerID, alternating
// kinds. It feeds the pool of items the other actors fight over. Statement
// errors are tolerated: chaos may kill the backend mid-insert.
func Reporter(ctx context.Context, pool *pgxpool.Pool, ownerID string, stop <-chan struct{}) error {
	kind := "lost_items"
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		name := itemNames[rand.Intn(len(itemNames))]
		query := fmt.Sprintf(`INSERT INTO %s (name, description, place, owner_user_id)
                               VALUES ($1, $2, 'Central Station', $3)`, kind)
		_, _ = pool.Exec(ctx, query, name, "a "+name+" in good condition", ownerID)
		if kind == "lost_items" {
			kind = "found_items"
		} else {
			kind = "lost_items"
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// Matchmaker pairs random lost and found items through the real candidate
// repository. Duplicate pairs, confirmed items and chaos-killed connections
// are all expected under contention; the oracles judge the surviving state.
func Matchmaker(ctx context.Context, pool *pgxpool.Pool, repo *match.PGRepository, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		var lostID, foundID string
		err := pool.QueryRow(ctx, `
            SELECT l.id, f.id
            FROM (SELECT id FROM lost_items WHERE status <> 'confirmed' ORDER BY random() LIMIT 1) l,
                 (SELECT id FROM found_items WHERE status <> 'confirmed' ORDER BY random() LIMIT 1) f
        `).Scan(&lostID, &foundID)
		if err == nil {
			score := 61 + rand.Intn(39)
			_, _ = repo.CreateCandidate(ctx, lostID, foundID, score)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Reviewer picks random unconfirmed candidates and confirms or declines them
// as an admin through the real review service. Races with other reviewers
// surface as not-found or invalid-transition errors, which are expected.
func Reviewer(ctx context.Context, pool *pgxpool.Pool, svc *match.Service, stop <-chan struct{}) error {
	admin := auth.Actor{UserID: "00000000-0000-0000-0000-000000000000", Role: auth.RoleAdmin}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		var candID string
		err := pool.QueryRow(ctx, `
            SELECT id FROM match_candidates
            WHERE review_status = 'unconfirmed'
            ORDER BY random() LIMIT 1
        `).Scan(&candID)
		if err == nil {
			if rand.Intn(2) == 0 {
				_, _ = svc.Confirm(ctx, admin, candID)
			} else {
				_ = svc.Decline(ctx, admin, candID)
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

// NotificationReader marks random notifications read, racing the writers.
func NotificationReader(ctx context.Context, pool *pgxpool.Pool, userID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, _ = pool.Exec(ctx, `
            UPDATE notifications SET is_read = true
            WHERE id IN (
                SELECT id FROM notifications WHERE user_id = $1 AND is_read = false
                ORDER BY random() LIMIT 5
            )
        `, userID)
		time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
	}
}
