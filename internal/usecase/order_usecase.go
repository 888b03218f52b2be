package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"smartephone/internal/domain/model"
	repo "smartephone/internal/repository"

	"github.com/rs/zerolog"
)

type OrderUsecase struct {
	tx      repo.TransactionManager
	orders  repo.OrderRepository
	clock   Clock
	timeout time.Duration
}

func NewOrderUsecase(tx repo.TransactionManager, orders repo.OrderRepository, clock Clock, timeout time.Duration) *OrderUsecase {
	if timeout <= 0 {
		timeout = model.DefaultPaymentTimeout
	}
	return &OrderUsecase{tx: tx, orders: orders, clock: clock, timeout: timeout}
}

// statusは表示用に計算したもの。To Payのときだけ支払い期限を付ける
type OrderOutput struct {
	model.Order
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type OrderActionOutput struct {
	Message string      `json:"message"`
	Order   OrderOutput `json:"order"`
}

// GET /orders/:userId。期限切れの未払い注文はここでもキャンセルを保存する
func (u *OrderUsecase) ListUserOrders(ctx context.Context, actorUserID int64, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "userId required")
	}
	if actorUserID != userID {
		return []OrderOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	orders, err := u.orders.ListByUserID(ctx, userID)
	if err != nil {
		return []OrderOutput{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	now := u.clock.Now()
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		if model.IsPaymentExpired(o, now, u.timeout) {
			//保存に失敗しても表示はCancelled（次のsweepで保存される）
			if _, err := u.expire(ctx, &o, now, model.EventActorSystem); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Int64("order_id", o.ID).Msg("persist timeout cancel failed")
			}
		}
		outs = append(outs, u.toOrderOutput(o, now))
	}
	return outs, nil
}

// DBのidでも決済会社のreferenceでもキャンセルできる
func (u *OrderUsecase) Cancel(ctx context.Context, userID int64, idOrRef string) (OrderActionOutput, error) {
	o, err := u.transition(ctx, userID, idOrRef, model.OrderStatusCancelled)
	if err != nil {
		return OrderActionOutput{}, err
	}
	return OrderActionOutput{
		Message: "Order cancelled successfully",
		Order:   u.toOrderOutput(o, u.clock.Now()),
	}, nil
}

func (u *OrderUsecase) MarkReceived(ctx context.Context, userID int64, idOrRef string) (OrderActionOutput, error) {
	o, err := u.transition(ctx, userID, idOrRef, model.OrderStatusCompleted)
	if err != nil {
		return OrderActionOutput{}, err
	}
	return OrderActionOutput{
		Message: "Order marked as received (completed)",
		Order:   u.toOrderOutput(o, u.clock.Now()),
	}, nil
}

// 期限切れの未払いオンライン注文をまとめてキャンセルする（sweep用）。
// 何度呼んでも同じ結果になる
func (u *OrderUsecase) CancelExpiredOrders(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	now := u.clock.Now()
	cutoff := now.Add(-u.timeout)

	cancelled := 0
	for {
		orders, err := u.orders.FindExpiredUnpaid(ctx, cutoff, batchSize)
		if err != nil {
			return cancelled, err
		}

		applied := 0
		for i := range orders {
			ok, err := u.expire(ctx, &orders[i], now, model.EventActorSweeper)
			if err != nil {
				return cancelled, err
			}
			if ok {
				applied++
			}
		}
		cancelled += applied

		//全件処理したか、これ以上進まない
		if len(orders) < batchSize || applied == 0 {
			return cancelled, nil
		}
	}
}

func (u *OrderUsecase) transition(ctx context.Context, userID int64, idOrRef string, to model.OrderStatus) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	o, err := u.findOrder(ctx, idOrRef)
	if err != nil {
		return model.Order{}, err
	}
	//他人の注文は存在しない扱い
	if o.UserID != userID {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "order not found")
	}

	//一覧と同じく、期限切れの未払い注文は先にキャンセルを保存する
	now := u.clock.Now()
	if model.IsPaymentExpired(o, now, u.timeout) {
		ok, err := u.expire(ctx, &o, now, model.EventActorSystem)
		if err != nil {
			return model.Order{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
		}
		if !ok {
			if o, err = u.orders.FindByID(ctx, o.ID); err != nil {
				return model.Order{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
			}
		}
	}

	if o.Status.IsTerminal() {
		return model.Order{}, NewHTTPError(http.StatusConflict, fmt.Sprintf("order not modified: already %s", o.Status))
	}
	if !model.CanTransition(o.Status, to) {
		return model.Order{}, NewHTTPError(http.StatusConflict, fmt.Sprintf("order not modified: cannot change %s to %s", o.Status, to))
	}

	var applied bool
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Orders().Transition(ctx, o.ID, to, repo.StatusChange{At: now})
		if err != nil || !ok {
			return err
		}
		applied = true

		actor := userID
		return r.Events().Create(ctx, model.OrderEvent{
			OrderID:     o.ID,
			FromStatus:  o.Status,
			ToStatus:    to,
			Actor:       model.EventActorUser,
			ActorUserID: &actor,
			Reason:      "requested by user",
			CreatedAt:   now,
		})
	})
	if err != nil {
		return model.Order{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	//読んだ後に別のリクエスト（webhook/sweep）が先に更新した
	if !applied {
		latest, err := u.orders.FindByID(ctx, o.ID)
		if err != nil {
			return model.Order{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
		}
		return model.Order{}, NewHTTPError(http.StatusConflict, fmt.Sprintf("order not modified: already %s", latest.Status))
	}

	applyStatus(&o, to, repo.StatusChange{At: now})
	zerolog.Ctx(ctx).Info().Int64("order_id", o.ID).Str("to", string(to)).Msg("order status changed")
	return o, nil
}

// 数値ならid、それ以外・見つからなければreferenceで探す
func (u *OrderUsecase) findOrder(ctx context.Context, idOrRef string) (model.Order, error) {
	key := strings.TrimSpace(idOrRef)
	if key == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "order id required")
	}

	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		o, err := u.orders.FindByID(ctx, id)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return model.Order{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
		}
	}

	o, err := u.orders.FindByRef(ctx, key)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return model.Order{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	return o, nil
}

// 支払い期限切れでキャンセル。適用したらoも書き換える
func (u *OrderUsecase) expire(ctx context.Context, o *model.Order, now time.Time, actor model.EventActor) (bool, error) {
	return expireOrder(ctx, u.tx, o, now, actor, u.timeout)
}

// sweep・一覧・操作・webhookの全経路で同じ書き方をする
func expireOrder(ctx context.Context, tx repo.TransactionManager, o *model.Order, now time.Time, actor model.EventActor, timeout time.Duration) (bool, error) {
	ch := repo.StatusChange{At: now, DueToTimeout: true}

	var applied bool
	err := tx.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Orders().Transition(ctx, o.ID, model.OrderStatusCancelled, ch)
		if err != nil || !ok {
			return err
		}
		applied = true

		return r.Events().Create(ctx, model.OrderEvent{
			OrderID:    o.ID,
			FromStatus: o.Status,
			ToStatus:   model.OrderStatusCancelled,
			Actor:      actor,
			Reason:     "payment not received within " + timeout.String(),
			CreatedAt:  now,
		})
	})
	if err != nil {
		return false, err
	}

	if applied {
		applyStatus(o, model.OrderStatusCancelled, ch)
		zerolog.Ctx(ctx).Info().Int64("order_id", o.ID).Str("actor", string(actor)).Msg("unpaid order cancelled by timeout")
	}
	return applied, nil
}

func (u *OrderUsecase) toOrderOutput(o model.Order, now time.Time) OrderOutput {
	out := OrderOutput{
		Order:     o,
		ExpiresAt: model.PaymentDeadline(o, now, u.timeout),
	}
	out.Status = model.DeriveStatus(o, now, u.timeout)
	if out.Status == model.OrderStatusCancelled && !o.Status.IsTerminal() {
		out.CancelledDueToTimeout = true
	}
	return out
}

// DBに書いた内容をメモリ上の注文にも反映する
func applyStatus(o *model.Order, to model.OrderStatus, ch repo.StatusChange) {
	t := ch.At
	o.Status = to
	o.UpdatedAt = t
	switch to {
	case model.OrderStatusCancelled:
		o.CancelledAt = &t
		o.CancelledDueToTimeout = ch.DueToTimeout
	case model.OrderStatusCompleted:
		o.CompletedAt = &t
	}
}
