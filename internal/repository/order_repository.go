package repository

import (
	"context"
	"errors"
	"time"

	"smartephone/internal/domain/model"
)

// order_refのユニーク制約違反
var ErrDuplicateOrderRef = errors.New("duplicate order ref")

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

// ステータス変更と一緒に書く項目
type StatusChange struct {
	At           time.Time
	DueToTimeout bool
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	FindByRef(ctx context.Context, ref string) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.Order, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	// 支払い済みにする。未払い・非終端で、createdAfterより後に作られた（期限内の）注文だけ更新し、更新したらtrue
	MarkPaid(ctx context.Context, ref string, paidAt time.Time, createdAfter time.Time) (bool, error)

	// 遷移元が許可されたステータスのときだけ更新する（compare-and-set）。更新したらtrue
	Transition(ctx context.Context, orderID int64, to model.OrderStatus, ch StatusChange) (bool, error)

	// 支払い期限切れ候補（cutoff以前に作成された未払いオンライン注文）
	FindExpiredUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error)
}
