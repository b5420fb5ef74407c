package repository

import (
	"context"

	"omniops/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ItemRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewItemRepository(db *pgxpool.Pool, logger *zap.Logger) *ItemRepository {
	return &ItemRepository{db: db, logger: logger}
}

func (r *ItemRepository) Insert(ctx context.Context, it *model.Item) error {
	r.logger.Debug("Inserting item",
		zap.String("title", it.Title),
		zap.String("category", string(it.Category)),
		zap.String("status", it.Status),
	)
	query := `
        INSERT INTO items (title, description, status, category)
        VALUES ($1, $2, $3, $4)
        RETURNING id::text, created_at
    `
	err := r.db.QueryRow(ctx, query,
		it.Title,
		it.Description,
		it.Status,
		string(it.Category),
	).Scan(&it.ID, &it.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert item",
			zap.Error(err),
			zap.String("category", string(it.Category)),
		)
		return err
	}
	r.logger.Info("Item inserted successfully",
		zap.String("item_id", it.ID),
		zap.String("category", string(it.Category)),
	)
	return nil
}

func (r *ItemRepository) List(ctx context.Context) ([]model.Item, error) {
	query := `
        SELECT id::text, title, description, status, category, created_at
        FROM items
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		var it model.Item
		var category string
		if err := rows.Scan(
			&it.ID,
			&it.Title,
			&it.Description,
			&it.Status,
			&category,
			&it.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan item row", zap.Error(err))
			return nil, err
		}
		it.Category = model.Category(category)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("Items listed successfully", zap.Int("count", len(items)))
	return items, nil
}

// UpdateStatus 记录不存在时返回 pgx.ErrNoRows
func (r *ItemRepository) UpdateStatus(ctx context.Context, id, status string) error {
	r.logger.Debug("Updating item status",
		zap.String("item_id", id),
		zap.String("status", status),
	)
	result, err := r.db.Exec(ctx, `UPDATE items SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		r.logger.Error("Failed to update item status",
			zap.Error(err),
			zap.String("item_id", id),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	r.logger.Info("Item status updated",
		zap.String("item_id", id),
		zap.String("status", status),
	)
	return nil
}

func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete item",
			zap.Error(err),
			zap.String("item_id", id),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	r.logger.Info("Item deleted", zap.String("item_id", id))
	return nil
}
