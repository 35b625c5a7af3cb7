package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ardikapras/netbill/internal/pkg/billing"
)

// CallbackTokenHeader carries the shared secret the payment gateway sends
// with every webhook delivery.
const CallbackTokenHeader = "x-callback-token"

// HandlePaymentCallback is the payment gateway webhook endpoint. Anything the
// gateway should not retry is acknowledged with 200; 401/400/404 tell the
// operator something is misconfigured, 500 asks the gateway to try again.
func HandlePaymentCallback(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Get(CallbackTokenHeader))
	rawBody := append([]byte(nil), c.BodyRaw()...)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := billingService.ProcessCallback(ctx, token, rawBody)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrAuthenticationFailed):
			return jsonError(c, fiber.StatusUnauthorized, "invalid_callback_token", "Callback token verification failed")
		case errors.Is(err, billing.ErrInvalidPayload):
			return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "Callback payload could not be parsed")
		case errors.Is(err, billing.ErrTransactionNotFound):
			return jsonError(c, fiber.StatusNotFound, "transaction_not_found", "No transaction matches the invoice reference")
		default:
			log.Errorf("[Payment] callback processing failed: %v", err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Callback processing failed")
		}
	}

	response := fiber.Map{"ok": true}
	if result.Duplicate {
		response["duplicate"] = true
	}
	if result.AlreadySettled {
		response["already_settled"] = true
	}
	if result.ProvisioningError != nil {
		// Payment is settled; provisioning is retried in the background.
		response["provisioning_pending"] = true
	}
	return c.Status(fiber.StatusOK).JSON(response)
}
