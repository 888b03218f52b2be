// Package payment は外部決済サービスとのやり取りで使う型。
package payment

import "errors"

var (
	// 決済会社のレスポンスに必要な項目がない
	ErrIncompleteLink = errors.New("payment link response is missing reference number or checkout url")
	// webhookのpayloadの形が想定と違う
	ErrMalformedEvent = errors.New("malformed payment event")
	// webhookの署名が一致しない
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

const StatusPaid = "paid"

// 決済リンク作成の入力。Amountは最小単位（centavo）
type LinkRequest struct {
	Amount      int64
	Description string
	Remarks     string
	Metadata    map[string]string
}

type Link struct {
	ID              string
	ReferenceNumber string
	CheckoutURL     string
}

// webhookから取り出した決済イベント
type Event struct {
	ID              string
	Type            string
	Status          string
	ReferenceNumber string
}

func (e Event) IsPaid() bool {
	return e.Status == StatusPaid
}
