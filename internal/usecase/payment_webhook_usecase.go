package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"smartephone/internal/domain/model"
	"smartephone/internal/domain/payment"
	repo "smartephone/internal/repository"

	"github.com/rs/zerolog"
)

// webhookのbodyを検証して決済イベントにする約束
type PaymentEventParser interface {
	Parse(body []byte, signature string) (payment.Event, error)
}

type WebhookOutput struct {
	Message string `json:"message"`
}

// 決済完了通知。同じイベントが何度来ても結果は1回分と同じ
type PaymentWebhookUsecase struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
	parser  PaymentEventParser
	clock   Clock
	timeout time.Duration
}

func NewPaymentWebhookUsecase(tx repo.TransactionManager, orders repo.OrderRepository, parser PaymentEventParser, clock Clock, timeout time.Duration) *PaymentWebhookUsecase {
	if timeout <= 0 {
		timeout = model.DefaultPaymentTimeout
	}
	return &PaymentWebhookUsecase{tx: tx, orders: orders, parser: parser, clock: clock, timeout: timeout}
}

// 形が不正・対象外のイベントはエラーにせず200で返す（決済会社の再送を止める）。
// 署名不一致は401、DB障害は500（再送してもらう）
func (u *PaymentWebhookUsecase) HandlePaymentEvent(ctx context.Context, body []byte, signature string) (WebhookOutput, error) {
	logger := zerolog.Ctx(ctx)

	ev, err := u.parser.Parse(body, signature)
	if errors.Is(err, payment.ErrInvalidSignature) {
		logger.Warn().Msg("webhook signature mismatch")
		return WebhookOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}
	if err != nil {
		logger.Warn().Err(err).Msg("webhook payload ignored")
		return WebhookOutput{Message: "ignored: malformed payload"}, nil
	}

	if !ev.IsPaid() {
		logger.Info().Str("reference", ev.ReferenceNumber).Str("status", ev.Status).Msg("webhook event is not a payment")
		return WebhookOutput{Message: "ignored: status " + ev.Status}, nil
	}

	now := u.clock.Now()
	var applied bool
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//期限を過ぎた注文は、sweepがまだでも支払い済みにしない
		ok, err := r.Orders().MarkPaid(ctx, ev.ReferenceNumber, now, now.Add(-u.timeout))
		if err != nil || !ok {
			return err
		}
		applied = true

		o, err := r.Orders().FindByRef(ctx, ev.ReferenceNumber)
		if err != nil {
			return err
		}
		return r.Events().Create(ctx, model.OrderEvent{
			OrderID:    o.ID,
			FromStatus: model.OrderStatusToPay,
			ToStatus:   model.OrderStatusToShip,
			Actor:      model.EventActorWebhook,
			Reason:     "payment confirmed (" + ev.ID + ")",
			CreatedAt:  now,
		})
	})
	if err != nil {
		logger.Error().Err(err).Str("reference", ev.ReferenceNumber).Msg("apply payment failed")
		return WebhookOutput{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	if applied {
		logger.Info().Str("reference", ev.ReferenceNumber).Msg("payment confirmed")
		return WebhookOutput{Message: "Webhook processed successfully"}, nil
	}

	return u.explainNoop(ctx, ev, now)
}

// 何も更新しなかった理由を調べてログに残す
func (u *PaymentWebhookUsecase) explainNoop(ctx context.Context, ev payment.Event, now time.Time) (WebhookOutput, error) {
	logger := zerolog.Ctx(ctx)

	o, err := u.orders.FindByRef(ctx, ev.ReferenceNumber)
	if errors.Is(err, repo.ErrNotFound) {
		logger.Warn().Str("reference", ev.ReferenceNumber).Msg("payment for unknown order")
		return WebhookOutput{Message: "ignored: unknown reference"}, nil
	}
	if err != nil {
		return WebhookOutput{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	//期限切れのまま残っていた注文はここでキャンセルを保存する
	if model.IsPaymentExpired(o, now, u.timeout) {
		if _, err := expireOrder(ctx, u.tx, &o, now, model.EventActorSystem, u.timeout); err != nil {
			logger.Error().Err(err).Int64("order_id", o.ID).Msg("persist timeout cancel failed")
		}
		//保存に失敗しても支払いは反映していない
		o.Status = model.OrderStatusCancelled
	}

	switch {
	case o.PaymentStatus == model.PaymentStatusPaid:
		return WebhookOutput{Message: "already processed"}, nil
	case o.Status.IsTerminal():
		//期限切れ・キャンセル後に支払われた。返金は手作業
		logger.Warn().Int64("order_id", o.ID).Str("reference", ev.ReferenceNumber).Str("status", string(o.Status)).
			Msg("payment received for closed order, manual refund required")
		return WebhookOutput{Message: "ignored: order already " + string(o.Status)}, nil
	default:
		logger.Warn().Int64("order_id", o.ID).Str("payment_method", string(o.PaymentMethod)).Msg("payment event for non payment-link order")
		return WebhookOutput{Message: "ignored: not a payment link order"}, nil
	}
}
