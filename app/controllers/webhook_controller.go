package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PrimePass/internal/pkg/billing"
)

const webhookTimeout = 15 * time.Second

type webhookResponse struct {
	Received bool `json:"received"`
	billing.WebhookResult
}

// HandleDaimoWebhook feeds the raw request body to the payment pipeline.
// The signature is computed over the exact bytes received.
func (ctl *Controller) HandleDaimoWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	res := ctl.billing.HandleWebhook(ctx, billing.WebhookRequest{
		Body:          rawBody,
		Signature:     c.Get(billing.SignatureHeader),
		Authorization: c.Get(fiber.HeaderAuthorization),
	})

	if res.StatusCode >= fiber.StatusBadRequest {
		message := "Webhook rejected"
		if res.Err != nil && res.StatusCode < fiber.StatusInternalServerError {
			message = res.Err.Error()
		}
		return jsonError(c, res.StatusCode, billing.Kind(res.Err), message)
	}
	return c.Status(res.StatusCode).JSON(webhookResponse{Received: true, WebhookResult: res})
}
