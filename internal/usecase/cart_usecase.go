package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"smartephone/internal/domain/model"
	repo "smartephone/internal/repository"

	"github.com/rs/zerolog"
)

// 1行あたりの最大数量
const maxLineQuantity = 99

// CartUsecase は /cart の業務ロジックです。
// 明細の価格・商品名は必ずカタログから引き直す。
type CartUsecase struct {
	cartRepo    repo.CartRepository
	productRepo repo.ProductRepository
}

func NewCartUsecase(cartRepo repo.CartRepository, productRepo repo.ProductRepository) *CartUsecase {
	return &CartUsecase{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// クライアントから来る明細。price等は受け取っても使わない
type CartItemInput struct {
	ProductID       int64  `json:"productId"`
	SelectedColor   string `json:"selectedColor"`
	SelectedStorage string `json:"selectedStorage"`
	Quantity        int64  `json:"quantity"`
}

type CartResponse struct {
	Items     []model.CartLine `json:"cartItems"`
	Total     int64            `json:"total"`
	UpdatedAt *time.Time       `json:"updatedAt,omitempty"`
}

// カート取得（無ければ空）
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return toCartResponse(model.Cart{}), nil
	}
	if err != nil {
		return CartResponse{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	return toCartResponse(cart), nil
}

// 保存済みカートを丸ごと置き換える。nilは400、空配列はカートを空にする
func (u *CartUsecase) ReplaceCart(ctx context.Context, userID int64, items []CartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if items == nil {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "cartItems required")
	}

	lines, err := u.priceLines(ctx, items)
	if err != nil {
		return CartResponse{}, err
	}

	lines = model.MergeCartLines(nil, lines)
	if err := checkLineQuantities(lines); err != nil {
		return CartResponse{}, err
	}

	cart, err := u.cartRepo.Save(ctx, userID, lines)
	if err != nil {
		return CartResponse{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	return toCartResponse(cart), nil
}

// 別端末・ゲストのカートを足し込む。同じ(商品,色,容量)は数量を加算し、1行の上限で止める
func (u *CartUsecase) MergeCart(ctx context.Context, userID int64, items []CartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if items == nil {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "cartItems required")
	}

	incoming, err := u.priceLines(ctx, items)
	if err != nil {
		return CartResponse{}, err
	}

	var saved []model.CartLine
	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		saved = u.repriceSaved(ctx, cart.Items)
	case errors.Is(err, repo.ErrNotFound):
	default:
		return CartResponse{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	//足した結果が上限を超えた行は上限で止める（マージは失敗させない）
	merged := capLineQuantities(ctx, model.MergeCartLines(saved, incoming))

	cart, err = u.cartRepo.Save(ctx, userID, merged)
	if err != nil {
		return CartResponse{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	return toCartResponse(cart), nil
}

// 入力明細を検証してカタログ価格を付ける
func (u *CartUsecase) priceLines(ctx context.Context, items []CartItemInput) ([]model.CartLine, error) {
	lines := make([]model.CartLine, 0, len(items))
	for _, it := range items {
		if it.ProductID <= 0 {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid productId")
		}
		if it.Quantity < 1 || it.Quantity > maxLineQuantity {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}

		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown product %d", it.ProductID))
		}
		if err != nil {
			return nil, wrapHTTPError(http.StatusInternalServerError, "catalog error", err)
		}
		if !p.HasVariant(it.SelectedColor, it.SelectedStorage) {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid variant for product %d", it.ProductID))
		}

		lines = append(lines, cartLineFromProduct(p, it.SelectedColor, it.SelectedStorage, it.Quantity))
	}
	return lines, nil
}

// 保存済みの明細を今のカタログで引き直す。消えた商品の行は落とす
func (u *CartUsecase) repriceSaved(ctx context.Context, saved []model.CartLine) []model.CartLine {
	out := make([]model.CartLine, 0, len(saved))
	for _, l := range saved {
		p, err := u.productRepo.FindByID(ctx, l.ProductID)
		if err != nil || !p.HasVariant(l.SelectedColor, l.SelectedStorage) {
			zerolog.Ctx(ctx).Warn().Int64("product_id", l.ProductID).Msg("dropping stale cart line")
			continue
		}
		out = append(out, cartLineFromProduct(p, l.SelectedColor, l.SelectedStorage, l.Quantity))
	}
	return out
}

// まとめた後の数量も上限を超えないこと
func checkLineQuantities(lines []model.CartLine) error {
	for _, l := range lines {
		if l.Quantity > maxLineQuantity {
			return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("quantity exceeds %d for product %d", maxLineQuantity, l.ProductID))
		}
	}
	return nil
}

func capLineQuantities(ctx context.Context, lines []model.CartLine) []model.CartLine {
	for i := range lines {
		if lines[i].Quantity > maxLineQuantity {
			zerolog.Ctx(ctx).Info().Int64("product_id", lines[i].ProductID).Int64("quantity", lines[i].Quantity).Msg("merged cart line capped")
			lines[i].Quantity = maxLineQuantity
		}
	}
	return lines
}

func cartLineFromProduct(p model.Product, color, storage string, qty int64) model.CartLine {
	return model.CartLine{
		ProductID:       p.ID,
		Name:            p.Name,
		Image:           p.Image,
		SelectedColor:   color,
		SelectedStorage: storage,
		Quantity:        qty,
		Price:           p.Price,
	}
}

func toCartResponse(c model.Cart) CartResponse {
	items := []model.CartLine(c.Items)
	if items == nil {
		items = []model.CartLine{}
	}

	res := CartResponse{
		Items: items,
		Total: model.CartTotal(items),
	}
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		res.UpdatedAt = &t
	}
	return res
}
