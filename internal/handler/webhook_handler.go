package handler

import (
	"io"
	"net/http"

	"smartephone/internal/infra/paymongo"
	"smartephone/internal/usecase"

	"github.com/labstack/echo/v4"
)

// webhook bodyの上限
const maxWebhookBody = 1 << 20

// 決済会社からの通知。認証は署名（JWTではない）
type WebhookHandler struct {
	uc *usecase.PaymentWebhookUsecase
}

func NewWebhookHandler(uc *usecase.PaymentWebhookUsecase) *WebhookHandler {
	return &WebhookHandler{uc: uc}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhook/payment-confirmation", h.paymentConfirmation)
}

func (h *WebhookHandler) paymentConfirmation(c echo.Context) error {
	//署名検証に生のbodyが要るのでBindしない
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusOK, SuccessResponse{Message: "ignored: unreadable body"})
	}

	out, err := h.uc.HandlePaymentEvent(c.Request().Context(), body, c.Request().Header.Get(paymongo.SignatureHeader))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
