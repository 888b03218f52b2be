package repository

import (
	"context"

	"smartephone/internal/domain/model"
)

type CartRepository interface {
	// 無ければErrNotFound
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// 明細を丸ごと置き換える（無ければ作成）
	Save(ctx context.Context, userID int64, lines []model.CartLine) (model.Cart, error)
	// 注文確定後に空にする
	Clear(ctx context.Context, userID int64) error
}
