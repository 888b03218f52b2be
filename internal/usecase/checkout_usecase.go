package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"smartephone/internal/domain/model"
	"smartephone/internal/domain/payment"
	repo "smartephone/internal/repository"

	"github.com/rs/zerolog"
)

// 決済会社に渡す金額は最小単位（1ペソ=100センタボ）
const centavosPerPeso = 100

type CheckoutUsecase struct {
	tx          repo.TransactionManager
	cartRepo    repo.CartRepository
	productRepo repo.ProductRepository
	links       PaymentLinkCreator
	refs        OrderRefGenerator
	clock       Clock
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	cartRepo repo.CartRepository,
	productRepo repo.ProductRepository,
	links PaymentLinkCreator,
	refs OrderRefGenerator,
	clock Clock,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:          tx,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		links:       links,
		refs:        refs,
		clock:       clock,
	}
}

type PlaceOrderOutput struct {
	Message string      `json:"message"`
	OrderID string      `json:"orderId"`
	Order   model.Order `json:"order"`
}

type PaymentLinkOutput struct {
	PaymentURL string `json:"paymentUrl"`
	OrderID    string `json:"orderId"`
}

// 代引き注文。注文と履歴を同じTxで書き、commit後にカートを空にする
func (u *CheckoutUsecase) PlaceCOD(ctx context.Context, userID int64) (PlaceOrderOutput, error) {
	if userID <= 0 {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusBadRequest, "userId required")
	}

	lines, total, err := u.snapshotCart(ctx, userID)
	if err != nil {
		return PlaceOrderOutput{}, err
	}

	now := u.clock.Now()
	order := model.Order{
		OrderRef:      u.refs.NewRef(),
		UserID:        userID,
		Items:         lines,
		Total:         total,
		PaymentMethod: model.PaymentMethodCOD,
		PaymentStatus: model.PaymentStatusUnpaid,
		Status:        model.OrderStatusToReceive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := u.createOrder(ctx, &order, "placed (cash on delivery)"); err != nil {
		return PlaceOrderOutput{}, err
	}

	//カートが消せなくても注文は成立している（古いカートが残るだけ）
	if err := u.cartRepo.Clear(ctx, userID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Str("order_ref", order.OrderRef).Msg("clear cart after order failed")
	}

	zerolog.Ctx(ctx).Info().Str("order_ref", order.OrderRef).Int64("total", total).Msg("cod order placed")

	return PlaceOrderOutput{
		Message: "Cash on Delivery order placed successfully!",
		OrderID: order.OrderRef,
		Order:   order,
	}, nil
}

// オンライン決済。先に決済リンクを作り、成功したときだけ注文を書く
func (u *CheckoutUsecase) CreatePaymentLink(ctx context.Context, userID int64) (PaymentLinkOutput, error) {
	if userID <= 0 {
		return PaymentLinkOutput{}, NewHTTPError(http.StatusBadRequest, "userId required")
	}

	lines, total, err := u.snapshotCart(ctx, userID)
	if err != nil {
		return PaymentLinkOutput{}, err
	}

	uid := strconv.FormatInt(userID, 10)
	link, err := u.links.CreateLink(ctx, payment.LinkRequest{
		Amount:      total * centavosPerPeso,
		Description: "Order Payment",
		Remarks:     "Payment for order by " + uid,
		Metadata:    map[string]string{"userId": uid},
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("create payment link failed")
		return PaymentLinkOutput{}, wrapHTTPError(http.StatusInternalServerError, "payment provider error", err)
	}

	now := u.clock.Now()
	order := model.Order{
		OrderRef:      link.ReferenceNumber,
		UserID:        userID,
		Items:         lines,
		Total:         total,
		PaymentMethod: model.PaymentMethodPaymentLink,
		PaymentStatus: model.PaymentStatusPending,
		Status:        model.OrderStatusToPay,
		PaymentURL:    link.CheckoutURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := u.createOrder(ctx, &order, "payment link created"); err != nil {
		//リンクは作られているが注文がない。支払われてもwebhookは無視される
		zerolog.Ctx(ctx).Error().Str("order_ref", link.ReferenceNumber).Msg("payment link created but order not stored")
		return PaymentLinkOutput{}, err
	}

	zerolog.Ctx(ctx).Info().Str("order_ref", order.OrderRef).Int64("total", total).Msg("payment link order placed")

	return PaymentLinkOutput{
		PaymentURL: link.CheckoutURL,
		OrderID:    order.OrderRef,
	}, nil
}

func (u *CheckoutUsecase) createOrder(ctx context.Context, order *model.Order, reason string) error {
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Orders().Create(ctx, order); err != nil {
			return err
		}

		actor := order.UserID
		return r.Events().Create(ctx, model.OrderEvent{
			OrderID:     order.ID,
			ToStatus:    order.Status,
			Actor:       model.EventActorUser,
			ActorUserID: &actor,
			Reason:      reason,
			CreatedAt:   order.CreatedAt,
		})
	})
	if errors.Is(err, repo.ErrDuplicateOrderRef) {
		return wrapHTTPError(http.StatusConflict, "order already exists", err)
	}
	if err != nil {
		return wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	return nil
}

// 保存済みカートを注文明細にする。単価は今のカタログ価格
func (u *CheckoutUsecase) snapshotCart(ctx context.Context, userID int64) ([]model.OrderLine, int64, error) {
	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, 0, NewHTTPError(http.StatusBadRequest, "cart is empty")
	}
	if err != nil {
		return nil, 0, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	if len(cart.Items) == 0 {
		return nil, 0, NewHTTPError(http.StatusBadRequest, "cart is empty")
	}

	lines := make([]model.OrderLine, 0, len(cart.Items))
	for _, l := range cart.Items {
		if l.Quantity < 1 {
			return nil, 0, NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}

		p, err := u.productRepo.FindByID(ctx, l.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("product %d is no longer available", l.ProductID))
		}
		if err != nil {
			return nil, 0, wrapHTTPError(http.StatusInternalServerError, "catalog error", err)
		}
		if !p.HasVariant(l.SelectedColor, l.SelectedStorage) {
			return nil, 0, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid variant for product %d", l.ProductID))
		}

		lines = append(lines, model.OrderLine{
			ProductID:       p.ID,
			Name:            p.Name,
			Image:           p.Image,
			SelectedColor:   l.SelectedColor,
			SelectedStorage: l.SelectedStorage,
			Quantity:        l.Quantity,
			UnitPrice:       p.Price,
		})
	}

	total := model.OrderTotal(lines)
	if total <= 0 {
		return nil, 0, NewHTTPError(http.StatusBadRequest, "invalid total")
	}
	return lines, total, nil
}
