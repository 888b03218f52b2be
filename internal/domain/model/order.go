package model

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentMethod string

const (
	PaymentMethodCOD         PaymentMethod = "Cash on Delivery"
	PaymentMethodPaymentLink PaymentMethod = "PayMongo Payment Link"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "Unpaid"
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// 注文時点の明細スナップショット。あとでカタログの価格が変わっても影響しない
type OrderLine struct {
	ProductID       int64  `json:"productId"`
	Name            string `json:"name"`
	Image           string `json:"image,omitempty"`
	SelectedColor   string `json:"selectedColor"`
	SelectedStorage string `json:"selectedStorage"`
	Quantity        int64  `json:"quantity"`
	UnitPrice       int64  `json:"price"`
}

type Order struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"_id"`
	//オンライン決済は決済会社のreference number、代引きはこちらで採番
	OrderRef      string                         `gorm:"type:varchar(100);not null;uniqueIndex" json:"orderId"`
	UserID        int64                          `gorm:"not null;index" json:"userId"`
	Items         datatypes.JSONSlice[OrderLine] `gorm:"type:jsonb;not null" json:"cartItems"`
	Total         int64                          `gorm:"not null" json:"total"`
	PaymentMethod PaymentMethod                  `gorm:"type:varchar(50);not null" json:"paymentMethod"`
	PaymentStatus PaymentStatus                  `gorm:"type:varchar(20);not null;index" json:"paymentStatus"`
	Status        OrderStatus                    `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentURL    string                         `gorm:"type:text" json:"paymentUrl,omitempty"`

	CancelledDueToTimeout bool       `gorm:"not null;default:false" json:"cancelledDueToTimeout"`
	PaidAt                *time.Time `json:"paidAt,omitempty"`
	CancelledAt           *time.Time `json:"cancelledAt,omitempty"`
	CompletedAt           *time.Time `json:"completedAt,omitempty"`
	CreatedAt             time.Time  `gorm:"not null;index" json:"createdAt"`
	UpdatedAt             time.Time  `gorm:"not null" json:"updatedAt"`
}

func OrderTotal(lines []OrderLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.UnitPrice * l.Quantity
	}
	return total
}
