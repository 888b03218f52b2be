package repository

import (
	"context"

	repo "smartephone/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders repo.OrderRepository
	events repo.OrderEventRepository
	carts  repo.CartRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository      { return r.orders }
func (r *txReposGorm) Events() repo.OrderEventRepository { return r.events }
func (r *txReposGorm) Carts() repo.CartRepository        { return r.carts }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders: NewOrderGormRepository(tx),
			events: NewOrderEventGormRepository(tx),
			carts:  NewCartGormRepository(tx),
		}
		return fn(r)
	})
}
