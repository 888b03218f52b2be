package model

import "time"

type OrderStatus string

const (
	OrderStatusToPay     OrderStatus = "To Pay"
	OrderStatusToShip    OrderStatus = "To Ship"
	OrderStatusToReceive OrderStatus = "To Receive"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// 未払いのオンライン注文を自動キャンセルするまでの時間
const DefaultPaymentTimeout = 24 * time.Hour

// Completed/Cancelledは終端。以降どの遷移でも変わらない
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusToPay, OrderStatusToShip, OrderStatusToReceive, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// 許可する遷移
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusToPay:     {OrderStatusToShip, OrderStatusCancelled},
	OrderStatusToShip:    {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusToReceive: {OrderStatusCompleted, OrderStatusCancelled},
}

func CanTransition(from, to OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// toへ遷移できる元ステータス一覧（条件付きUPDATEのWHEREで使う）
func SourcesOf(to OrderStatus) []OrderStatus {
	var out []OrderStatus
	for _, from := range []OrderStatus{OrderStatusToPay, OrderStatusToShip, OrderStatusToReceive} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// 支払い期限切れか（オンライン決済・未払い・終端でない）
func IsPaymentExpired(o Order, now time.Time, timeout time.Duration) bool {
	if o.PaymentMethod == PaymentMethodCOD {
		return false
	}
	if o.PaymentStatus == PaymentStatusPaid || o.Status.IsTerminal() {
		return false
	}
	return now.Sub(o.CreatedAt) >= timeout
}

// 表示用ステータスを計算する。副作用なし
func DeriveStatus(o Order, now time.Time, timeout time.Duration) OrderStatus {
	if o.Status.IsTerminal() {
		return o.Status
	}
	if o.PaymentMethod == PaymentMethodCOD {
		return OrderStatusToReceive
	}
	if o.PaymentStatus == PaymentStatusPaid {
		return OrderStatusToShip
	}
	if IsPaymentExpired(o, now, timeout) {
		return OrderStatusCancelled
	}
	return OrderStatusToPay
}

// To Payの注文の支払い期限。それ以外はnil
func PaymentDeadline(o Order, now time.Time, timeout time.Duration) *time.Time {
	if DeriveStatus(o, now, timeout) != OrderStatusToPay {
		return nil
	}
	t := o.CreatedAt.Add(timeout)
	return &t
}
