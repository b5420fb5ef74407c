package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"omniops/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type SubmissionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewSubmissionRepository(db *pgxpool.Pool, logger *zap.Logger) *SubmissionRepository {
	return &SubmissionRepository{db: db, logger: logger}
}

// Insert 不校验 data 是否匹配表单字段
func (r *SubmissionRepository) Insert(ctx context.Context, formID string, data map[string]any) (*model.Submission, error) {
	if data == nil {
		data = map[string]any{}
	}
	sub := &model.Submission{FormID: formID, Data: data}
	err := r.db.QueryRow(ctx, `
        INSERT INTO submissions (form_id, data)
        VALUES ($1, $2)
        RETURNING id::text, created_at
    `, formID, data).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert submission",
			zap.Error(err),
			zap.String("form_id", formID),
		)
		return nil, err
	}
	r.logger.Info("Submission stored",
		zap.String("submission_id", sub.ID),
		zap.String("form_id", formID),
	)
	return sub, nil
}

// 表单在查询时 LEFT JOIN，表单被删除时 title/fields 为 NULL
const selectSubmissionWithForm = `
    SELECT s.id::text, s.form_id::text, s.data, s.created_at, f.title, f.fields
    FROM submissions s
    LEFT JOIN forms f ON f.id = s.form_id
`

func (r *SubmissionRepository) ListWithForms(ctx context.Context) ([]model.SubmissionWithForm, error) {
	rows, err := r.db.Query(ctx, selectSubmissionWithForm+` ORDER BY s.created_at DESC`)
	if err != nil {
		r.logger.Error("Failed to query submissions", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := []model.SubmissionWithForm{}
	for rows.Next() {
		sub, err := scanSubmissionWithForm(rows)
		if err != nil {
			r.logger.Error("Failed to scan submission row", zap.Error(err))
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

// GetWithForm 提交不存在时返回 pgx.ErrNoRows
func (r *SubmissionRepository) GetWithForm(ctx context.Context, id string) (*model.SubmissionWithForm, error) {
	row := r.db.QueryRow(ctx, selectSubmissionWithForm+` WHERE s.id = $1`, id)
	return scanSubmissionWithForm(row)
}

func (r *SubmissionRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&n)
	return n, err
}

func scanSubmissionWithForm(row pgx.Row) (*model.SubmissionWithForm, error) {
	var (
		sub       model.SubmissionWithForm
		dataRaw   []byte
		fieldsRaw []byte
	)
	if err := row.Scan(&sub.ID, &sub.FormID, &dataRaw, &sub.CreatedAt, &sub.FormTitle, &fieldsRaw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(dataRaw, &sub.Data); err != nil {
		return nil, fmt.Errorf("decode submission data: %w", err)
	}
	if fieldsRaw != nil {
		if err := json.Unmarshal(fieldsRaw, &sub.FormFields); err != nil {
			// 字段定义损坏时按表单缺失处理，由渲染层走原始数据兜底
			sub.FormFields = nil
			sub.FormTitle = nil
		}
	}
	return &sub, nil
}
