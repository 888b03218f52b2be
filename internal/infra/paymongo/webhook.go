package paymongo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"smartephone/internal/domain/payment"
)

const SignatureHeader = "Paymongo-Signature"

// webhookの検証とpayloadの取り出し。secretが空なら署名は見ない
type WebhookParser struct {
	secret string
}

func NewWebhookParser(secret string) *WebhookParser {
	return &WebhookParser{secret: secret}
}

type webhookPayload struct {
	Data *struct {
		ID         string `json:"id"`
		Attributes *struct {
			Type string `json:"type"`
			Data *struct {
				ID         string `json:"id"`
				Attributes *struct {
					Status                  string `json:"status"`
					ExternalReferenceNumber string `json:"external_reference_number"`
					ReferenceNumber         string `json:"reference_number"`
				} `json:"attributes"`
			} `json:"data"`
		} `json:"attributes"`
	} `json:"data"`
}

// data.attributes.data.attributes から status と reference number を取り出す
func (p *WebhookParser) Parse(body []byte, signature string) (payment.Event, error) {
	if p.secret != "" {
		if err := VerifySignature(signature, body, p.secret); err != nil {
			return payment.Event{}, err
		}
	}

	var w webhookPayload
	if err := json.Unmarshal(body, &w); err != nil {
		return payment.Event{}, payment.ErrMalformedEvent
	}
	if w.Data == nil || w.Data.Attributes == nil || w.Data.Attributes.Data == nil || w.Data.Attributes.Data.Attributes == nil {
		return payment.Event{}, payment.ErrMalformedEvent
	}

	inner := w.Data.Attributes.Data.Attributes
	ref := strings.TrimSpace(inner.ExternalReferenceNumber)
	if ref == "" {
		ref = strings.TrimSpace(inner.ReferenceNumber)
	}
	if ref == "" {
		return payment.Event{}, payment.ErrMalformedEvent
	}

	return payment.Event{
		ID:              w.Data.ID,
		Type:            w.Data.Attributes.Type,
		Status:          strings.ToLower(strings.TrimSpace(inner.Status)),
		ReferenceNumber: ref,
	}, nil
}

// ヘッダは "t=<timestamp>,te=<test署名>,li=<live署名>"。
// 署名は HMAC-SHA256("<timestamp>.<body>")
func VerifySignature(header string, body []byte, secret string) error {
	var ts, te, li string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "te":
			te = v
		case "li":
			li = v
		}
	}
	if ts == "" || (te == "" && li == "") {
		return payment.ErrInvalidSignature
	}

	expected := Sign(ts, body, secret)
	for _, got := range []string{li, te} {
		if got != "" && hmac.Equal([]byte(got), []byte(expected)) {
			return nil
		}
	}
	return payment.ErrInvalidSignature
}

func Sign(timestamp string, body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
