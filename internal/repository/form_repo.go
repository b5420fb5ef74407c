package repository

import (
	"context"

	"omniops/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type FormRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewFormRepository(db *pgxpool.Pool, logger *zap.Logger) *FormRepository {
	return &FormRepository{db: db, logger: logger}
}

// Insert fields 以 jsonb 文档保存，顺序不变
func (r *FormRepository) Insert(ctx context.Context, title string, fields []model.Field) (*model.Form, error) {
	if fields == nil {
		fields = []model.Field{}
	}
	form := &model.Form{Title: title, Fields: fields}
	err := r.db.QueryRow(ctx, `
        INSERT INTO forms (title, fields)
        VALUES ($1, $2)
        RETURNING id::text, created_at
    `, title, fields).Scan(&form.ID, &form.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert form",
			zap.Error(err),
			zap.String("title", title),
		)
		return nil, err
	}
	r.logger.Info("Form saved",
		zap.String("form_id", form.ID),
		zap.Int("field_count", len(fields)),
	)
	return form, nil
}

// Get 表单不存在时返回 pgx.ErrNoRows
func (r *FormRepository) Get(ctx context.Context, id string) (*model.Form, error) {
	var form model.Form
	err := r.db.QueryRow(ctx, `
        SELECT id::text, title, fields, created_at
        FROM forms
        WHERE id = $1
    `, id).Scan(&form.ID, &form.Title, &form.Fields, &form.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &form, nil
}

func (r *FormRepository) List(ctx context.Context) ([]model.Form, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id::text, title, fields, created_at
        FROM forms
        ORDER BY created_at DESC
    `)
	if err != nil {
		r.logger.Error("Failed to query forms", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	forms := []model.Form{}
	for rows.Next() {
		var f model.Form
		if err := rows.Scan(&f.ID, &f.Title, &f.Fields, &f.CreatedAt); err != nil {
			r.logger.Error("Failed to scan form row", zap.Error(err))
			return nil, err
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}

func (r *FormRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM forms`).Scan(&n)
	return n, err
}
