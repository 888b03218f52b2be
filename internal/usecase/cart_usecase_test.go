package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"smartephone/internal/domain/model"
	repo "smartephone/internal/repository"
	"smartephone/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func phoneOne(color, storage string, qty int64) model.CartLine {
	return model.CartLine{ProductID: 1, Name: "Phone One", SelectedColor: color, SelectedStorage: storage, Quantity: qty, Price: 1000}
}

func phoneTwo(qty int64) model.CartLine {
	return model.CartLine{ProductID: 2, Name: "Phone Two", Quantity: qty, Price: 500}
}

// Saveに渡された明細をそのまま返す
func echoSave(carts *cartRepoMock, ctx context.Context, userID int64, want []model.CartLine) {
	carts.On("Save", ctx, userID, want).Return(model.Cart{UserID: userID, Items: want, UpdatedAt: testNow}, nil).Once()
}

func TestCartUsecase_GetCart_Empty(t *testing.T) {
	ctx := context.Background()
	carts := new(cartRepoMock)
	carts.On("FindByUserID", ctx, int64(7)).Return(model.Cart{}, repo.ErrNotFound)

	out, err := usecase.NewCartUsecase(carts, newTestCatalog(t)).GetCart(ctx, 7)
	require.NoError(t, err)
	assert.NotNil(t, out.Items)
	assert.Empty(t, out.Items)
	assert.Equal(t, int64(0), out.Total)
	assert.Nil(t, out.UpdatedAt)
}

// 価格はクライアントの値ではなくカタログから付ける
func TestCartUsecase_ReplaceCart(t *testing.T) {
	ctx := context.Background()
	carts := new(cartRepoMock)

	want := []model.CartLine{phoneOne("Black", "128GB", 3), phoneTwo(1)}
	echoSave(carts, ctx, 7, want)

	out, err := usecase.NewCartUsecase(carts, newTestCatalog(t)).ReplaceCart(ctx, 7, []usecase.CartItemInput{
		{ProductID: 1, SelectedColor: "Black", SelectedStorage: "128GB", Quantity: 1},
		{ProductID: 2, Quantity: 1},
		{ProductID: 1, SelectedColor: "Black", SelectedStorage: "128GB", Quantity: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, want, out.Items)
	assert.Equal(t, int64(3500), out.Total)
	require.NotNil(t, out.UpdatedAt)
	carts.AssertExpectations(t)
}

func TestCartUsecase_ReplaceCart_EmptyClears(t *testing.T) {
	ctx := context.Background()
	carts := new(cartRepoMock)
	echoSave(carts, ctx, 7, []model.CartLine{})

	out, err := usecase.NewCartUsecase(carts, newTestCatalog(t)).ReplaceCart(ctx, 7, []usecase.CartItemInput{})
	require.NoError(t, err)
	assert.Empty(t, out.Items)
}

func TestCartUsecase_ReplaceCart_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		items []usecase.CartItemInput
		msg   string
	}{
		{name: "nil", items: nil, msg: "cartItems required"},
		{name: "bad product id", items: []usecase.CartItemInput{{ProductID: 0, Quantity: 1}}, msg: "invalid productId"},
		{name: "zero quantity", items: []usecase.CartItemInput{{ProductID: 2, Quantity: 0}}, msg: "invalid quantity"},
		{name: "unknown product", items: []usecase.CartItemInput{{ProductID: 42, Quantity: 1}}, msg: "unknown product 42"},
		{name: "bad color", items: []usecase.CartItemInput{{ProductID: 1, SelectedColor: "Gold", SelectedStorage: "128GB", Quantity: 1}}, msg: "invalid variant"},
		{name: "missing storage", items: []usecase.CartItemInput{{ProductID: 1, SelectedColor: "Black", Quantity: 1}}, msg: "invalid variant"},
		{name: "merged over limit", items: []usecase.CartItemInput{{ProductID: 2, Quantity: 60}, {ProductID: 2, Quantity: 40}}, msg: "quantity exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			carts := new(cartRepoMock)
			_, err := usecase.NewCartUsecase(carts, newTestCatalog(t)).ReplaceCart(context.Background(), 7, tt.items)
			assertHTTPError(t, err, http.StatusBadRequest, tt.msg)
			carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCartUsecase_Unauthorized(t *testing.T) {
	uc := usecase.NewCartUsecase(new(cartRepoMock), newTestCatalog(t))
	_, err := uc.GetCart(context.Background(), 0)
	assertHTTPError(t, err, http.StatusUnauthorized, "")
}

// 同じ(商品,色,容量)は数量を足す。保存済みの古い行は引き直し、消えた商品は落とす
func TestCartUsecase_MergeCart(t *testing.T) {
	ctx := context.Background()
	carts := new(cartRepoMock)

	saved := phoneOne("White", "256GB", 1)
	saved.Price = 900
	carts.On("FindByUserID", ctx, int64(7)).Return(cartWith(
		saved,
		model.CartLine{ProductID: 77, Quantity: 1, Price: 10},
	), nil)

	want := []model.CartLine{phoneOne("White", "256GB", 3), phoneTwo(1)}
	echoSave(carts, ctx, 7, want)

	out, err := usecase.NewCartUsecase(carts, newTestCatalog(t)).MergeCart(ctx, 7, []usecase.CartItemInput{
		{ProductID: 1, SelectedColor: "White", SelectedStorage: "256GB", Quantity: 2},
		{ProductID: 2, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, want, out.Items)
	assert.Equal(t, int64(3500), out.Total)
	carts.AssertExpectations(t)
}

func TestCartUsecase_MergeCart_NoSavedCart(t *testing.T) {
	ctx := context.Background()
	carts := new(cartRepoMock)
	carts.On("FindByUserID", ctx, int64(7)).Return(model.Cart{}, repo.ErrNotFound)
	echoSave(carts, ctx, 7, []model.CartLine{phoneTwo(2)})

	out, err := usecase.NewCartUsecase(carts, newTestCatalog(t)).MergeCart(ctx, 7, []usecase.CartItemInput{{ProductID: 2, Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), out.Total)
}

// 合計が上限を超えた行は上限で保存する（置き換えと違って400にしない）
func TestCartUsecase_MergeCart_CapsQuantity(t *testing.T) {
	ctx := context.Background()
	carts := new(cartRepoMock)
	carts.On("FindByUserID", ctx, int64(7)).Return(cartWith(phoneTwo(60)), nil)
	echoSave(carts, ctx, 7, []model.CartLine{phoneTwo(99)})

	out, err := usecase.NewCartUsecase(carts, newTestCatalog(t)).MergeCart(ctx, 7, []usecase.CartItemInput{{ProductID: 2, Quantity: 50}})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(99), out.Items[0].Quantity)
	carts.AssertExpectations(t)
}
