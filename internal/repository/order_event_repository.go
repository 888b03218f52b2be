package repository

import (
	"context"

	"smartephone/internal/domain/model"
)

// 注文ステータス遷移履歴の保存・一覧取得の約束。
type OrderEventRepository interface {
	//履歴を1件保存
	Create(ctx context.Context, event model.OrderEvent) error

	//注文ごとの履歴（古い順）
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderEvent, error)
}
