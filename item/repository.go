package item

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrItemNotFound signals that no item row exists for the identifier.
	ErrItemNotFound = errors.New("item: not found")
)

// Repository handles data access for lost and found item records.
type Repository interface {
	Create(ctx context.Context, it Item) (Item, error)
	GetByID(ctx context.Context, kind Kind, id string) (Item, error)
	ListUnmatched(ctx context.Context, kind Kind) ([]Item, error)
	ListByOwner(ctx context.Context, kind Kind, ownerID string) ([]Item, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const itemColumns = "id, name, description, place, image_ref, owner_user_id, status, created_at, updated_at"

func tableFor(kind Kind) string {
	if kind == KindLost {
		return "lost_items"
	}
	return "found_items"
}

func (r *PGRepository) Create(ctx context.Context, it Item) (Item, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, description, place, image_ref, owner_user_id, status)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7)
		RETURNING %s
	`, tableFor(it.Kind), itemColumns)

	row := r.pool.QueryRow(ctx, query,
		it.ID,
		it.Name,
		it.Description,
		it.Place,
		it.ImageRef,
		it.OwnerUserID,
		it.Status,
	)

	created, err := scanItem(row, it.Kind)
	if err != nil {
		return Item{}, fmt.Errorf("item: create %s item: %w", it.Kind, err)
	}
	return created, nil
}

func (r *PGRepository) GetByID(ctx context.Context, kind Kind, id string) (Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, itemColumns, tableFor(kind))

	it, err := scanItem(r.pool.QueryRow(ctx, query, id), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, fmt.Errorf("item: get %s item: %w", kind, err)
	}
	return it, nil
}

// ListUnmatched snapshots the items of the given kind still in their initial
// status. The orchestrator scans against this snapshot without re-querying.
func (r *PGRepository) ListUnmatched(ctx context.Context, kind Kind) ([]Item, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE status = $1
		ORDER BY created_at ASC
	`, itemColumns, tableFor(kind))

	rows, err := r.pool.Query(ctx, query, kind.InitialStatus())
	if err != nil {
		return nil, fmt.Errorf("item: list unmatched %s items: %w", kind, err)
	}
	defer rows.Close()

	return collectItems(rows, kind)
}

func (r *PGRepository) ListByOwner(ctx context.Context, kind Kind, ownerID string) ([]Item, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
	`, itemColumns, tableFor(kind))

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("item: list %s items by owner: %w", kind, err)
	}
	defer rows.Close()

	return collectItems(rows, kind)
}

func collectItems(rows pgx.Rows, kind Kind) ([]Item, error) {
	items := make([]Item, 0, 8)
	for rows.Next() {
		it, err := scanItem(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("item: scan %s item: %w", kind, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("item: iterate %s items: %w", kind, err)
	}
	return items, nil
}

func scanItem(row pgx.Row, kind Kind) (Item, error) {
	it := Item{Kind: kind}
	err := row.Scan(
		&it.ID,
		&it.Name,
		&it.Description,
		&it.Place,
		&it.ImageRef,
		&it.OwnerUserID,
		&it.Status,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
	if err != nil {
		return Item{}, err
	}
	return it, nil
}
