package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrCandidateNotFound  = errors.New("match: candidate not found")
	ErrCandidateDuplicate = errors.New("match: candidate already exists")
	ErrItemUnavailable    = errors.New("match: item no longer available for matching")
	ErrInvalidScore       = errors.New("match: similarity score out of range")
)

// Repository persists match candidates. Methods taking a pgx.Tx run inside
// the caller's transaction and rely on its locks.
type Repository interface {
	CreateCandidate(ctx context.Context, lostItemID, foundItemID string, score int) (Candidate, error)
	GetByID(ctx context.Context, candidateID string) (Candidate, error)
	GetDetailForUpdate(ctx context.Context, tx pgx.Tx, candidateID string) (CandidateDetail, error)
	MarkSucceeded(ctx context.Context, tx pgx.Tx, candidateID string, at time.Time) (Candidate, error)
	DeleteAndRevert(ctx context.Context, tx pgx.Tx, candidateID string) error
	ListForUser(ctx context.Context, userID string) ([]Candidate, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const candidateColumns = "id, lost_item_id, found_item_id, similarity_score, review_status::text, created_at, confirmed_at"

// CreateCandidate records a new pairing of a lost and a found item and moves
// both items to matched. The whole operation runs in one transaction: both
// item rows are locked first so a concurrent confirm cannot slip between the
// status check and the insert.
func (r *PGRepository) CreateCandidate(ctx context.Context, lostItemID, foundItemID string, score int) (Candidate, error) {
	if score < 0 || score > 100 {
		return Candidate{}, ErrInvalidScore
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Candidate{}, fmt.Errorf("match: begin create tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var lostStatus string
	if err := tx.QueryRow(ctx, `
		SELECT status::text FROM lost_items WHERE id = $1 FOR UPDATE
	`, lostItemID).Scan(&lostStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Candidate{}, ErrItemUnavailable
		}
		return Candidate{}, fmt.Errorf("match: lock lost item: %w", err)
	}

	var foundStatus string
	if err := tx.QueryRow(ctx, `
		SELECT status::text FROM found_items WHERE id = $1 FOR UPDATE
	`, foundItemID).Scan(&foundStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Candidate{}, ErrItemUnavailable
		}
		return Candidate{}, fmt.Errorf("match: lock found item: %w", err)
	}

	if lostStatus == "confirmed" || foundStatus == "confirmed" {
		return Candidate{}, ErrItemUnavailable
	}

	query := fmt.Sprintf(`
		INSERT INTO match_candidates (lost_item_id, found_item_id, similarity_score)
		VALUES ($1, $2, $3)
		RETURNING %s
	`, candidateColumns)

	cand, err := scanCandidate(tx.QueryRow(ctx, query, lostItemID, foundItemID, score))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Candidate{}, ErrCandidateDuplicate
		}
		return Candidate{}, fmt.Errorf("match: insert candidate: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE lost_items SET status = 'matched', updated_at = now()
		WHERE id = $1 AND status = 'lost'
	`, lostItemID); err != nil {
		return Candidate{}, fmt.Errorf("match: mark lost item matched: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE found_items SET status = 'matched', updated_at = now()
		WHERE id = $1 AND status = 'found'
	`, foundItemID); err != nil {
		return Candidate{}, fmt.Errorf("match: mark found item matched: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Candidate{}, fmt.Errorf("match: commit create tx: %w", err)
	}
	return cand, nil
}

func (r *PGRepository) GetByID(ctx context.Context, candidateID string) (Candidate, error) {
	query := fmt.Sprintf(`SELECT %s FROM match_candidates WHERE id = $1`, candidateColumns)
	cand, err := scanCandidate(r.pool.QueryRow(ctx, query, candidateID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Candidate{}, ErrCandidateNotFound
		}
		return Candidate{}, fmt.Errorf("match: get candidate: %w", err)
	}
	return cand, nil
}

// GetDetailForUpdate loads the candidate plus both item owners under FOR
// UPDATE locks. The candidate row is locked first, then both item rows, so
// concurrent confirm and decline calls serialise on the same order.
func (r *PGRepository) GetDetailForUpdate(ctx context.Context, tx pgx.Tx, candidateID string) (CandidateDetail, error) {
	const query = `
		SELECT c.id, c.lost_item_id, c.found_item_id, c.similarity_score,
		       c.review_status::text, c.created_at, c.confirmed_at,
		       l.owner_user_id, f.owner_user_id, l.status::text, f.status::text
		FROM match_candidates c
		JOIN lost_items l ON l.id = c.lost_item_id
		JOIN found_items f ON f.id = c.found_item_id
		WHERE c.id = $1
		FOR UPDATE OF c, l, f
	`
	var d CandidateDetail
	err := tx.QueryRow(ctx, query, candidateID).Scan(
		&d.ID,
		&d.LostItemID,
		&d.FoundItemID,
		&d.SimilarityScore,
		&d.ReviewStatus,
		&d.CreatedAt,
		&d.ConfirmedAt,
		&d.LostOwnerID,
		&d.FoundOwnerID,
		&d.LostStatus,
		&d.FoundStatus,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CandidateDetail{}, ErrCandidateNotFound
		}
		return CandidateDetail{}, fmt.Errorf("match: load candidate detail: %w", err)
	}
	return d, nil
}

// MarkSucceeded promotes the candidate and moves both paired items to
// confirmed. Call with the candidate detail already locked.
func (r *PGRepository) MarkSucceeded(ctx context.Context, tx pgx.Tx, candidateID string, at time.Time) (Candidate, error) {
	query := fmt.Sprintf(`
		UPDATE match_candidates
		SET review_status = 'succeeded', confirmed_at = $2
		WHERE id = $1
		RETURNING %s
	`, candidateColumns)

	cand, err := scanCandidate(tx.QueryRow(ctx, query, candidateID, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Candidate{}, ErrCandidateNotFound
		}
		return Candidate{}, fmt.Errorf("match: mark candidate succeeded: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE lost_items SET status = 'confirmed', updated_at = $2 WHERE id = $1
	`, cand.LostItemID, at); err != nil {
		return Candidate{}, fmt.Errorf("match: confirm lost item: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE found_items SET status = 'confirmed', updated_at = $2 WHERE id = $1
	`, cand.FoundItemID, at); err != nil {
		return Candidate{}, fmt.Errorf("match: confirm found item: %w", err)
	}
	return cand, nil
}

// DeleteAndRevert removes the candidate and returns its items to their
// initial statuses. The reverts are guarded on status = 'matched' so a
// decline never undoes a confirmation reached through another candidate.
func (r *PGRepository) DeleteAndRevert(ctx context.Context, tx pgx.Tx, candidateID string) error {
	var lostID, foundID string
	err := tx.QueryRow(ctx, `
		DELETE FROM match_candidates WHERE id = $1
		RETURNING lost_item_id, found_item_id
	`, candidateID).Scan(&lostID, &foundID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCandidateNotFound
		}
		return fmt.Errorf("match: delete candidate: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE lost_items SET status = 'lost', updated_at = now()
		WHERE id = $1 AND status = 'matched'
	`, lostID); err != nil {
		return fmt.Errorf("match: revert lost item: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE found_items SET status = 'found', updated_at = now()
		WHERE id = $1 AND status = 'matched'
	`, foundID); err != nil {
		return fmt.Errorf("match: revert found item: %w", err)
	}
	return nil
}

// ListForUser returns candidates touching any item owned by userID, newest
// first.
func (r *PGRepository) ListForUser(ctx context.Context, userID string) ([]Candidate, error) {
	const query = `
		SELECT c.id, c.lost_item_id, c.found_item_id, c.similarity_score,
		       c.review_status::text, c.created_at, c.confirmed_at
		FROM match_candidates c
		JOIN lost_items l ON l.id = c.lost_item_id
		JOIN found_items f ON f.id = c.found_item_id
		WHERE l.owner_user_id = $1 OR f.owner_user_id = $1
		ORDER BY c.created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("match: list candidates: %w", err)
	}
	defer rows.Close()

	out := make([]Candidate, 0, 8)
	for rows.Next() {
		cand, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("match: scan candidate: %w", err)
		}
		out = append(out, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("match: iterate candidates: %w", err)
	}
	return out, nil
}

func scanCandidate(row pgx.Row) (Candidate, error) {
	var c Candidate
	err := row.Scan(
		&c.ID,
		&c.LostItemID,
		&c.FoundItemID,
		&c.SimilarityScore,
		&c.ReviewStatus,
		&c.CreatedAt,
		&c.ConfirmedAt,
	)
	if err != nil {
		return Candidate{}, err
	}
	return c, nil
}
