package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"smartephone/internal/domain/model"
	repo "smartephone/internal/repository"
)

type AdminOrderUsecase struct {
	orders  repo.OrderRepository
	events  repo.OrderEventRepository
	clock   Clock
	timeout time.Duration
}

func NewAdminOrderUsecase(orders repo.OrderRepository, events repo.OrderEventRepository, clock Clock, timeout time.Duration) *AdminOrderUsecase {
	if timeout <= 0 {
		timeout = model.DefaultPaymentTimeout
	}
	return &AdminOrderUsecase{orders: orders, events: events, clock: clock, timeout: timeout}
}

type AdminOrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// 注文一覧（statusは保存されている値で絞り込む）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (AdminOrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	f.Status = strings.TrimSpace(f.Status)
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "from must be before to")
	}

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return AdminOrderListOutput{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	now := u.clock.Now()
	items := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		out := OrderOutput{Order: o, ExpiresAt: model.PaymentDeadline(o, now, u.timeout)}
		out.Status = model.DeriveStatus(o, now, u.timeout)
		items = append(items, out)
	}

	return AdminOrderListOutput{
		Items: items,
		Total: total,
		Page:  f.Page,
		Limit: f.Limit,
	}, nil
}

// 注文のステータス遷移履歴（古い順）
func (u *AdminOrderUsecase) ListEvents(ctx context.Context, orderID int64) ([]model.OrderEvent, error) {
	if orderID <= 0 {
		return []model.OrderEvent{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if _, err := u.orders.FindByID(ctx, orderID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return []model.OrderEvent{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return []model.OrderEvent{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	events, err := u.events.ListByOrderID(ctx, orderID)
	if err != nil {
		return []model.OrderEvent{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	return events, nil
}

// 期間パラメータ（RFC3339）。空ならnil
func ParseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
