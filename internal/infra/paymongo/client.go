package paymongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smartephone/internal/domain/payment"

	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://api.paymongo.com/v1"

type Client struct {
	http *resty.Client
}

// 認証はsecret keyのBasic認証（パスワードは空）
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetBasicAuth(secretKey, "").
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &Client{http: c}
}

type linkAttributes struct {
	Amount          int64             `json:"amount,omitempty"`
	Description     string            `json:"description,omitempty"`
	Remarks         string            `json:"remarks,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	ReferenceNumber string            `json:"reference_number,omitempty"`
	CheckoutURL     string            `json:"checkout_url,omitempty"`
	Status          string            `json:"status,omitempty"`
}

type linkEnvelope struct {
	Data struct {
		ID         string         `json:"id,omitempty"`
		Attributes linkAttributes `json:"attributes"`
	} `json:"data"`
}

type apiErrorBody struct {
	Errors []struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// APIError は2xx以外のレスポンス
type APIError struct {
	StatusCode int
	Code       string
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paymongo: status %d: %s %s", e.StatusCode, e.Code, e.Detail)
}

// POST /links で決済リンクを作る
func (c *Client) CreateLink(ctx context.Context, in payment.LinkRequest) (payment.Link, error) {
	var req linkEnvelope
	req.Data.Attributes = linkAttributes{
		Amount:      in.Amount,
		Description: in.Description,
		Remarks:     in.Remarks,
		Metadata:    in.Metadata,
	}

	var out linkEnvelope
	var apiErr apiErrorBody

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/links")
	if err != nil {
		return payment.Link{}, fmt.Errorf("paymongo: create link: %w", err)
	}

	if resp.IsError() {
		e := &APIError{StatusCode: resp.StatusCode()}
		if len(apiErr.Errors) > 0 {
			e.Code = apiErr.Errors[0].Code
			e.Detail = apiErr.Errors[0].Detail
		}
		return payment.Link{}, e
	}

	attrs := out.Data.Attributes
	if attrs.ReferenceNumber == "" || attrs.CheckoutURL == "" {
		return payment.Link{}, payment.ErrIncompleteLink
	}

	return payment.Link{
		ID:              out.Data.ID,
		ReferenceNumber: attrs.ReferenceNumber,
		CheckoutURL:     attrs.CheckoutURL,
	}, nil
}
