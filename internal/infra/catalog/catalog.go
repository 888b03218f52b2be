package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"smartephone/internal/domain/model"
	repo "smartephone/internal/repository"
)

//go:embed products.json
var defaultProducts []byte

// 起動時に読み込んだ商品をメモリに持つ。実行中は変更しない
type Catalog struct {
	products []model.Product
	byID     map[int64]model.Product
}

var _ repo.ProductRepository = (*Catalog)(nil)

// pathが空なら同梱のproducts.jsonを使う
func Load(path string) (*Catalog, error) {
	data := defaultProducts
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data = b
	}

	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(products)
}

func New(products []model.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]model.Product, 0, len(products)),
		byID:     make(map[int64]model.Product, len(products)),
	}
	for _, p := range products {
		if p.ID <= 0 {
			return nil, fmt.Errorf("catalog: invalid product id %d", p.ID)
		}
		if p.Price <= 0 {
			return nil, fmt.Errorf("catalog: product %d has no price", p.ID)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate product id %d", p.ID)
		}
		c.byID[p.ID] = p
		c.products = append(c.products, p)
	}
	sort.Slice(c.products, func(i, j int) bool { return c.products[i].ID < c.products[j].ID })
	return c, nil
}

func (c *Catalog) List(_ context.Context, q repo.ProductListQuery) ([]model.Product, error) {
	keyword := strings.ToLower(strings.TrimSpace(q.Q))
	brand := strings.TrimSpace(q.Brand)

	out := make([]model.Product, 0, len(c.products))
	for _, p := range c.products {
		if brand != "" && !strings.EqualFold(p.Brand, brand) {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(p.Name), keyword) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *Catalog) FindByID(_ context.Context, id int64) (model.Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}
