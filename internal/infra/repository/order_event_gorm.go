package repository

import (
	"context"

	"smartephone/internal/domain/model"
	repo "smartephone/internal/repository"

	"gorm.io/gorm"
)

type orderEventGormRepository struct {
	db *gorm.DB
}

func NewOrderEventGormRepository(db *gorm.DB) repo.OrderEventRepository {
	return &orderEventGormRepository{db: db}
}

func (r *orderEventGormRepository) Create(ctx context.Context, event model.OrderEvent) error {
	return r.db.WithContext(ctx).Create(&event).Error
}

func (r *orderEventGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderEvent, error) {
	var events []model.OrderEvent

	//古い順
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&events).Error
	if err != nil {
		return []model.OrderEvent{}, err
	}
	return events, nil
}
