package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ardikapras/netbill/app/repository"
	"github.com/ardikapras/netbill/internal/pkg/xendit"
)

func gatewayError(c *fiber.Ctx, err error) error {
	if xendit.IsAuthentication(err) {
		return jsonError(c, fiber.StatusBadGateway, "gateway_authentication_failed", err.Error())
	}
	return jsonError(c, fiber.StatusBadGateway, "gateway_unavailable", err.Error())
}

// HandleAdminGatewayBalance returns the merchant balance at the payment
// gateway.
func HandleAdminGatewayBalance(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	balance, err := gatewayClient.GetBalance(ctx)
	if err != nil {
		return gatewayError(c, err)
	}
	return c.JSON(fiber.Map{"balance": balance})
}

// HandleAdminTransactionInvoice fetches the gateway's current view of the
// invoice behind a transaction, for reconciling stuck pending payments.
func HandleAdminTransactionInvoice(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "Transaction id must be a positive integer")
	}

	tx, err := repository.GetGlobalFactory().GetTransactionRepository().GetByID(id)
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "transaction_not_found", "Transaction not found")
	}
	if tx.ExternalReference == "" {
		return jsonError(c, fiber.StatusConflict, "no_external_reference", "Transaction has no gateway invoice")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	invoice, err := gatewayClient.GetInvoice(ctx, tx.ExternalReference)
	if err != nil {
		return gatewayError(c, err)
	}
	return c.JSON(fiber.Map{"transaction_id": tx.ID, "transaction_status": tx.Status, "invoice": invoice})
}
