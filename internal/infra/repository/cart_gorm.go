package repository

import (
	"context"
	"errors"
	"time"

	"smartephone/internal/domain/model"
	repo "smartephone/internal/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// ユーザーのカートを取得
func (r *CartGormRepository) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// user_idで1行だけ持つ。あればitemsを上書き
func (r *CartGormRepository) Save(ctx context.Context, userID int64, lines []model.CartLine) (model.Cart, error) {
	if lines == nil {
		lines = []model.CartLine{}
	}

	now := time.Now().UTC()
	cart := model.Cart{
		UserID:    userID,
		Items:     datatypes.JSONSlice[model.CartLine](lines),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
		}).
		Create(&cart).Error
	if err != nil {
		return model.Cart{}, err
	}

	return r.FindByUserID(ctx, userID)
}

// 明細を空にする。カートが無ければ何もしない
func (r *CartGormRepository) Clear(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"items":      datatypes.JSONSlice[model.CartLine]{},
			"updated_at": time.Now().UTC(),
		}).Error
}
