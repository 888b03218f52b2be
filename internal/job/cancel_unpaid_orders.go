package job

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// usecase.OrderUsecaseが満たす
type ExpiredOrderCanceller interface {
	CancelExpiredOrders(ctx context.Context, batchSize int) (int, error)
}

// 支払い期限を過ぎた未払いオンライン注文をキャンセルする
type CancelUnpaidOrdersJob struct {
	orders    ExpiredOrderCanceller
	batchSize int
}

func NewCancelUnpaidOrdersJob(orders ExpiredOrderCanceller, batchSize int) *CancelUnpaidOrdersJob {
	return &CancelUnpaidOrdersJob{orders: orders, batchSize: batchSize}
}

func (j *CancelUnpaidOrdersJob) Name() string {
	return "CancelUnpaidOrdersJob"
}

func (j *CancelUnpaidOrdersJob) Run(ctx context.Context) error {
	n, err := j.orders.CancelExpiredOrders(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("cancel expired orders (cancelled %d before failure): %w", n, err)
	}
	if n > 0 {
		zerolog.Ctx(ctx).Info().Int("cancelled", n).Msg("expired unpaid orders cancelled")
	}
	return nil
}
