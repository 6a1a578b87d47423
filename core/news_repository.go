package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NewsCard struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type NewsRepository interface {
	List(ctx context.Context, page, perPage int) ([]NewsCard, int, error)
	Get(ctx context.Context, id int64) (*NewsCard, error)
	Create(ctx context.Context, name, description string) (*NewsCard, error)
	Update(ctx context.Context, id int64, name, description string) (*NewsCard, error)
	Delete(ctx context.Context, id int64) error
}

type PgNewsRepository struct {
	db *pgxpool.Pool
}

func NewPgNewsRepository(db *pgxpool.Pool) *PgNewsRepository {
	return &PgNewsRepository{db: db}
}

func (r *PgNewsRepository) List(ctx context.Context, page, perPage int) ([]NewsCard, int, error) {
	if page <= 0 || perPage <= 0 {
		return nil, 0, errors.New("invalid pagination")
	}
	const countQ = `SELECT COUNT(*) FROM news_cards`
	var total int
	if err := r.db.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `
SELECT id, name, description, created_at, updated_at
FROM news_cards
ORDER BY updated_at DESC, id DESC
LIMIT $1 OFFSET $2
`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]NewsCard, 0, perPage)
	for rows.Next() {
		var n NewsCard
		if err := rows.Scan(&n.ID, &n.Name, &n.Description, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *PgNewsRepository) Get(ctx context.Context, id int64) (*NewsCard, error) {
	const q = `SELECT id, name, description, created_at, updated_at FROM news_cards WHERE id=$1`
	var n NewsCard
	if err := r.db.QueryRow(ctx, q, id).Scan(&n.ID, &n.Name, &n.Description, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *PgNewsRepository) Create(ctx context.Context, name, description string) (*NewsCard, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	const q = `INSERT INTO news_cards (name, description) VALUES ($1,$2) RETURNING id, created_at, updated_at`
	var n NewsCard
	if err := r.db.QueryRow(ctx, q, name, description).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.Name = name
	n.Description = description
	return &n, nil
}

func (r *PgNewsRepository) Update(ctx context.Context, id int64, name, description string) (*NewsCard, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	const q = `UPDATE news_cards SET name=$1, description=$2, updated_at=now() WHERE id=$3 RETURNING id, created_at, updated_at`
	var n NewsCard
	if err := r.db.QueryRow(ctx, q, name, description, id).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.Name = name
	n.Description = description
	return &n, nil
}

// Delete reports pgx.ErrNoRows when the id does not exist so handlers can
// answer 404 instead of silently succeeding.
func (r *PgNewsRepository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM news_cards WHERE id=$1`
	tag, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
