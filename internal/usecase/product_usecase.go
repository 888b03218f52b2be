package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"smartephone/internal/domain/model"
	repo "smartephone/internal/repository"
)

type ProductUsecase struct {
	productRepo repo.ProductRepository
}

// DI
func NewProductUsecase(productRepo repo.ProductRepository) *ProductUsecase {
	return &ProductUsecase{productRepo: productRepo}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Q     string
	Brand string
}

func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) ([]model.Product, error) {
	if len(in.Q) > 100 {
		return []model.Product{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if len(in.Brand) > 50 {
		return []model.Product{}, NewHTTPError(http.StatusBadRequest, "brand too long")
	}

	items, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Q:     strings.TrimSpace(in.Q),
		Brand: strings.TrimSpace(in.Brand),
	})
	if err != nil {
		return []model.Product{}, wrapHTTPError(http.StatusInternalServerError, "catalog error", err)
	}
	return items, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, wrapHTTPError(http.StatusInternalServerError, "catalog error", err)
	}
	return p, nil
}
