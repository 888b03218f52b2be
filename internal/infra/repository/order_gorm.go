package repository

import (
	"context"
	"errors"
	"time"

	"smartephone/internal/domain/model"
	repo "smartephone/internal/repository"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

var terminalStatuses = []model.OrderStatus{model.OrderStatusCompleted, model.OrderStatusCancelled}

func (r *OrderGormRepository) Create(ctx context.Context, order *model.Order) error {
	err := r.db.WithContext(ctx).Create(order).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repo.ErrDuplicateOrderRef
	}
	return err
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	return r.findOne(ctx, "id = ?", orderID)
}

func (r *OrderGormRepository) FindByRef(ctx context.Context, ref string) (model.Order, error) {
	return r.findOne(ctx, "order_ref = ?", ref)
}

func (r *OrderGormRepository) findOne(ctx context.Context, query string, arg interface{}) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where(query, arg).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// 新しい順
func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Order, error) {
	var items []model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&items).Error
	if err != nil {
		return []model.Order{}, err
	}
	return items, nil
}

// 期限切れの注文はsweep前でもここで弾く
func (r *OrderGormRepository) MarkPaid(ctx context.Context, ref string, paidAt time.Time, createdAfter time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("order_ref = ?", ref).
		Where("created_at > ?", createdAfter).
		Where("payment_method = ?", model.PaymentMethodPaymentLink).
		Where("payment_status <> ?", model.PaymentStatusPaid).
		Where("status NOT IN ?", terminalStatuses).
		Updates(map[string]interface{}{
			"payment_status": model.PaymentStatusPaid,
			"status":         model.OrderStatusToShip,
			"paid_at":        paidAt,
			"updated_at":     paidAt,
		})

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *OrderGormRepository) Transition(ctx context.Context, orderID int64, to model.OrderStatus, ch repo.StatusChange) (bool, error) {
	from := model.SourcesOf(to)
	if len(from) == 0 {
		return false, nil
	}

	fields := map[string]interface{}{
		"status":     to,
		"updated_at": ch.At,
	}
	switch to {
	case model.OrderStatusCancelled:
		fields["cancelled_at"] = ch.At
		fields["cancelled_due_to_timeout"] = ch.DueToTimeout
	case model.OrderStatusCompleted:
		fields["completed_at"] = ch.At
	}

	q := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Where("status IN ?", from)

	//期限切れキャンセルは支払い済みを巻き込まない
	if ch.DueToTimeout {
		q = q.Where("payment_status <> ?", model.PaymentStatusPaid)
	}

	res := q.Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *OrderGormRepository) FindExpiredUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 100
	}

	var items []model.Order
	err := r.db.WithContext(ctx).
		Where("payment_method = ?", model.PaymentMethodPaymentLink).
		Where("payment_status <> ?", model.PaymentStatusPaid).
		Where("status NOT IN ?", terminalStatuses).
		Where("created_at <= ?", cutoff).
		Order("id asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return []model.Order{}, err
	}
	return items, nil
}

func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.Order{})

	//status 絞り込み
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	//user_id 絞り込み
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}

	//期間絞り込み
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}
