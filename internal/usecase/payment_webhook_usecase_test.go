package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"smartephone/internal/domain/model"
	"smartephone/internal/domain/payment"
	repo "smartephone/internal/repository"
	"smartephone/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type webhookDeps struct {
	orders *orderRepoMock
	events *eventRepoMock
	parser *parserMock
	uc     *usecase.PaymentWebhookUsecase
}

func newWebhookDeps() webhookDeps {
	d := webhookDeps{orders: new(orderRepoMock), events: new(eventRepoMock), parser: new(parserMock)}
	tx := &txManagerMock{repos: &txReposMock{orders: d.orders, events: d.events}}
	d.uc = usecase.NewPaymentWebhookUsecase(tx, d.orders, d.parser, fixedClock{now: testNow}, 24*time.Hour)
	return d
}

var paidEvent = payment.Event{ID: "evt_1", Type: "link.payment.paid", Status: "paid", ReferenceNumber: "REF1"}

// これより前に作られた注文は期限切れ
var paidCutoff = testNow.Add(-24 * time.Hour)

func TestHandlePaymentEvent_Paid(t *testing.T) {
	d := newWebhookDeps()
	ctx := context.Background()
	body := []byte(`{}`)

	d.parser.On("Parse", body, "sig").Return(paidEvent, nil)
	d.orders.On("MarkPaid", ctx, "REF1", testNow, paidCutoff).Return(true, nil).Once()
	d.orders.On("FindByRef", ctx, "REF1").Return(model.Order{ID: 3, OrderRef: "REF1"}, nil).Once()
	d.events.On("Create", ctx, model.OrderEvent{
		OrderID:    3,
		FromStatus: model.OrderStatusToPay,
		ToStatus:   model.OrderStatusToShip,
		Actor:      model.EventActorWebhook,
		Reason:     "payment confirmed (evt_1)",
		CreatedAt:  testNow,
	}).Return(nil).Once()

	out, err := d.uc.HandlePaymentEvent(ctx, body, "sig")
	require.NoError(t, err)
	assert.Equal(t, "Webhook processed successfully", out.Message)
	d.orders.AssertExpectations(t)
	d.events.AssertExpectations(t)
}

// 同じ通知が再送されても二重に処理しない
func TestHandlePaymentEvent_Replay(t *testing.T) {
	d := newWebhookDeps()
	ctx := context.Background()
	paidAt := testNow.Add(-time.Minute)

	d.parser.On("Parse", mock.Anything, mock.Anything).Return(paidEvent, nil)
	d.orders.On("MarkPaid", ctx, "REF1", testNow, paidCutoff).Return(false, nil).Once()
	d.orders.On("FindByRef", ctx, "REF1").Return(model.Order{
		ID:            3,
		PaymentMethod: model.PaymentMethodPaymentLink,
		PaymentStatus: model.PaymentStatusPaid,
		Status:        model.OrderStatusToShip,
		PaidAt:        &paidAt,
	}, nil).Once()

	out, err := d.uc.HandlePaymentEvent(ctx, []byte(`{}`), "")
	require.NoError(t, err)
	assert.Equal(t, "already processed", out.Message)
	d.events.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestHandlePaymentEvent_Ignored(t *testing.T) {
	tests := []struct {
		name  string
		setup func(d webhookDeps, ctx context.Context)
		want  string
	}{
		{
			name: "malformed",
			setup: func(d webhookDeps, ctx context.Context) {
				d.parser.On("Parse", mock.Anything, mock.Anything).Return(payment.Event{}, payment.ErrMalformedEvent)
			},
			want: "ignored: malformed payload",
		},
		{
			name: "not paid",
			setup: func(d webhookDeps, ctx context.Context) {
				d.parser.On("Parse", mock.Anything, mock.Anything).
					Return(payment.Event{Status: "unpaid", ReferenceNumber: "REF1"}, nil)
			},
			want: "ignored: status unpaid",
		},
		{
			name: "unknown reference",
			setup: func(d webhookDeps, ctx context.Context) {
				d.parser.On("Parse", mock.Anything, mock.Anything).Return(paidEvent, nil)
				d.orders.On("MarkPaid", ctx, "REF1", testNow, paidCutoff).Return(false, nil)
				d.orders.On("FindByRef", ctx, "REF1").Return(model.Order{}, repo.ErrNotFound)
			},
			want: "ignored: unknown reference",
		},
		{
			name: "cancelled order",
			setup: func(d webhookDeps, ctx context.Context) {
				d.parser.On("Parse", mock.Anything, mock.Anything).Return(paidEvent, nil)
				d.orders.On("MarkPaid", ctx, "REF1", testNow, paidCutoff).Return(false, nil)
				d.orders.On("FindByRef", ctx, "REF1").Return(model.Order{
					ID:                    3,
					PaymentMethod:         model.PaymentMethodPaymentLink,
					PaymentStatus:         model.PaymentStatusPending,
					Status:                model.OrderStatusCancelled,
					CancelledDueToTimeout: true,
				}, nil)
			},
			want: "ignored: order already Cancelled",
		},
		{
			name: "cod order",
			setup: func(d webhookDeps, ctx context.Context) {
				d.parser.On("Parse", mock.Anything, mock.Anything).Return(paidEvent, nil)
				d.orders.On("MarkPaid", ctx, "REF1", testNow, paidCutoff).Return(false, nil)
				d.orders.On("FindByRef", ctx, "REF1").Return(codOrder(3, 7), nil)
			},
			want: "ignored: not a payment link order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newWebhookDeps()
			ctx := context.Background()
			tt.setup(d, ctx)

			out, err := d.uc.HandlePaymentEvent(ctx, []byte(`{}`), "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Message)
			d.events.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestHandlePaymentEvent_BadSignature(t *testing.T) {
	d := newWebhookDeps()
	d.parser.On("Parse", mock.Anything, "bad").Return(payment.Event{}, payment.ErrInvalidSignature)

	_, err := d.uc.HandlePaymentEvent(context.Background(), []byte(`{}`), "bad")
	assertHTTPError(t, err, http.StatusUnauthorized, "invalid signature")
	d.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// DB障害は500で返して再送してもらう
func TestHandlePaymentEvent_DBError(t *testing.T) {
	d := newWebhookDeps()
	ctx := context.Background()

	d.parser.On("Parse", mock.Anything, mock.Anything).Return(paidEvent, nil)
	d.orders.On("MarkPaid", ctx, "REF1", testNow, paidCutoff).Return(false, errors.New("db down"))

	_, err := d.uc.HandlePaymentEvent(ctx, []byte(`{}`), "")
	assertHTTPError(t, err, http.StatusInternalServerError, "db error")
}

// sweep前でも期限切れの注文は支払い済みにせず、キャンセルを保存する
func TestHandlePaymentEvent_ExpiredUnswept(t *testing.T) {
	d := newWebhookDeps()
	ctx := context.Background()

	d.parser.On("Parse", mock.Anything, mock.Anything).Return(paidEvent, nil)
	d.orders.On("MarkPaid", ctx, "REF1", testNow, paidCutoff).Return(false, nil).Once()
	d.orders.On("FindByRef", ctx, "REF1").Return(linkOrder(3, 7, testNow.Add(-25*time.Hour)), nil).Once()
	d.orders.On("Transition", ctx, int64(3), model.OrderStatusCancelled, repo.StatusChange{At: testNow, DueToTimeout: true}).
		Return(true, nil).Once()
	d.events.On("Create", ctx, mock.MatchedBy(func(ev model.OrderEvent) bool {
		return ev.OrderID == 3 && ev.Actor == model.EventActorSystem &&
			ev.FromStatus == model.OrderStatusToPay && ev.ToStatus == model.OrderStatusCancelled
	})).Return(nil).Once()

	out, err := d.uc.HandlePaymentEvent(ctx, []byte(`{}`), "")
	require.NoError(t, err)
	assert.Equal(t, "ignored: order already Cancelled", out.Message)
	d.orders.AssertExpectations(t)
	d.events.AssertExpectations(t)
}

// キャンセルの保存に失敗しても支払いは反映しない
func TestHandlePaymentEvent_ExpiredPersistFailure(t *testing.T) {
	d := newWebhookDeps()
	ctx := context.Background()

	d.parser.On("Parse", mock.Anything, mock.Anything).Return(paidEvent, nil)
	d.orders.On("MarkPaid", ctx, "REF1", testNow, paidCutoff).Return(false, nil).Once()
	d.orders.On("FindByRef", ctx, "REF1").Return(linkOrder(3, 7, testNow.Add(-25*time.Hour)), nil).Once()
	d.orders.On("Transition", ctx, int64(3), model.OrderStatusCancelled, mock.Anything).Return(false, errors.New("db down")).Once()

	out, err := d.uc.HandlePaymentEvent(ctx, []byte(`{}`), "")
	require.NoError(t, err)
	assert.Equal(t, "ignored: order already Cancelled", out.Message)
	d.events.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
