package persist

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"realtime-canvas/internal/model"
)

// Repository persists board objects to the backing relational store.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert upserts a full object row. Upsert keeps the write idempotent
// against a replayed create for an id that was already persisted.
func (r *Repository) Insert(ctx context.Context, obj *model.CanvasObject) error {
	row, err := model.RowFromObject(obj)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

// Update reads the current row, applies the partial and writes it back.
// Returns the resulting object, or (nil, nil) when the row no longer exists
// (a concurrent delete won the race, not an error).
func (r *Repository) Update(ctx context.Context, id string, patch model.Patch) (*model.CanvasObject, error) {
	var row model.BoardObjectRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load object %s: %w", id, err)
	}

	obj, err := model.ObjectFromRow(&row)
	if err != nil {
		return nil, err
	}
	obj.Apply(patch)

	updated, err := model.RowFromObject(obj)
	if err != nil {
		return nil, err
	}
	updated.CreatedAt = row.CreatedAt
	if err := r.db.WithContext(ctx).Save(updated).Error; err != nil {
		return nil, fmt.Errorf("save object %s: %w", id, err)
	}
	return obj, nil
}

// Delete removes one object row. Missing rows are a no-op.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.BoardObjectRow{}).Error
}

// DeleteMany removes a whole selection in a single statement.
func (r *Repository) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.BoardObjectRow{}).Error
}

// SelectAll fetches every object of a board, used for full resynchronization.
func (r *Repository) SelectAll(ctx context.Context, boardID string) ([]*model.CanvasObject, error) {
	var rows []model.BoardObjectRow
	if err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select board %s: %w", boardID, err)
	}

	objects := make([]*model.CanvasObject, 0, len(rows))
	for i := range rows {
		obj, err := model.ObjectFromRow(&rows[i])
		if err != nil {
			// Skip broken rows instead of failing the whole resync.
			continue
		}
		objects = append(objects, obj)
	}
	return objects, nil
}
