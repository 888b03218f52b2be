package model

import (
	"time"

	"gorm.io/datatypes"
)

// カートの1行。キーは(ProductID, SelectedColor, SelectedStorage)
type CartLine struct {
	ProductID       int64  `json:"productId"`
	Name            string `json:"name"`
	Image           string `json:"image,omitempty"`
	SelectedColor   string `json:"selectedColor"`
	SelectedStorage string `json:"selectedStorage"`
	Quantity        int64  `json:"quantity"`
	// カタログから引いた単価
	Price int64 `json:"price"`
}

type CartKey struct {
	ProductID int64
	Color     string
	Storage   string
}

func (l CartLine) Key() CartKey {
	return CartKey{ProductID: l.ProductID, Color: l.SelectedColor, Storage: l.SelectedStorage}
}

// 1ユーザーにつき1つ。明細はJSONで丸ごと持つ
type Cart struct {
	ID        int64                         `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    int64                         `gorm:"not null;uniqueIndex" json:"userId"`
	Items     datatypes.JSONSlice[CartLine] `gorm:"type:jsonb;not null" json:"cartItems"`
	CreatedAt time.Time                     `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt time.Time                     `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// 同じキーは数量を足して1行にまとめる。順番は最初に出てきた順
func MergeCartLines(base []CartLine, extra []CartLine) []CartLine {
	out := make([]CartLine, 0, len(base)+len(extra))
	idx := make(map[CartKey]int, len(base)+len(extra))

	for _, l := range append(append([]CartLine{}, base...), extra...) {
		if i, ok := idx[l.Key()]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.Key()] = len(out)
		out = append(out, l)
	}
	return out
}

// Σ(単価×数量)
func CartTotal(lines []CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Price * l.Quantity
	}
	return total
}
