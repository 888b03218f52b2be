package model

// カタログの商品（読み取り専用、DBには保存しない）
type Product struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Brand   string   `json:"brand"`
	Price   int64    `json:"price"`
	Colors  []string `json:"colors"`
	Storage []string `json:"storage"`
	Image   string   `json:"image"`
}

// 色・容量の選択が商品の選択肢に含まれるか。
// 選択肢を持たない商品は空文字だけ許可
func (p Product) HasVariant(color, storage string) bool {
	return hasOption(p.Colors, color) && hasOption(p.Storage, storage)
}

func hasOption(options []string, v string) bool {
	if len(options) == 0 {
		return v == ""
	}
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
