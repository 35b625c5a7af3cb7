package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ardikapras/netbill/app/repository"
	"github.com/ardikapras/netbill/internal/pkg/billing"
	"github.com/ardikapras/netbill/internal/pkg/xendit"
)

// HandleCreateSubscription runs the purchase flow and returns the invoice URL
// the customer pays at.
func HandleCreateSubscription(c *fiber.Ctx) error {
	var in billing.CreateSubscriptionInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	checkout, err := billingService.CreateSubscription(ctx, in)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrUserNotFound):
			return jsonError(c, fiber.StatusNotFound, "user_not_found", "User not found")
		case errors.Is(err, billing.ErrPackageNotFound):
			return jsonError(c, fiber.StatusNotFound, "package_not_found", "Package not found")
		case errors.Is(err, billing.ErrPackageInactive):
			return jsonError(c, fiber.StatusUnprocessableEntity, "package_inactive", "Package is not available for purchase")
		case xendit.IsConnectivity(err), xendit.IsAuthentication(err):
			log.Errorf("[Subscription] invoice creation failed: %v", err)
			return jsonError(c, fiber.StatusBadGateway, "gateway_unavailable", "Payment gateway could not create an invoice")
		default:
			log.Errorf("[Subscription] create failed: %v", err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create subscription")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(checkout)
}

// HandleGetSubscription returns one subscription with its package and user.
func HandleGetSubscription(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "Subscription id must be a positive integer")
	}

	sub, err := repository.GetGlobalFactory().GetSubscriptionRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Subscription not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscription")
	}
	return c.JSON(sub)
}

// HandleListUserSubscriptions returns all subscriptions for one user.
func HandleListUserSubscriptions(c *fiber.Ctx) error {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "User id must be a positive integer")
	}

	subs, err := repository.GetGlobalFactory().GetSubscriptionRepository().GetByUserID(userID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscriptions")
	}
	return c.JSON(fiber.Map{"subscriptions": subs})
}

// HandleListUserTransactions returns a user's payment history.
func HandleListUserTransactions(c *fiber.Ctx) error {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "User id must be a positive integer")
	}
	offset, limit := parsePagination(c)

	txs, err := repository.GetGlobalFactory().GetTransactionRepository().GetByUserID(userID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load transactions")
	}
	return c.JSON(fiber.Map{"transactions": txs})
}

// HandleAdminListSubscriptions lists subscriptions, optionally filtered by
// status.
func HandleAdminListSubscriptions(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	status := c.Query("status")

	subs, err := repository.GetGlobalFactory().GetSubscriptionRepository().ListByStatus(status, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscriptions")
	}
	return c.JSON(fiber.Map{"subscriptions": subs})
}

// HandleAdminReprovisionSubscription re-runs provisioning for a paid but
// unprovisioned subscription with its stored credentials.
func HandleAdminReprovisionSubscription(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "Subscription id must be a positive integer")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := billingService.ReprovisionSubscription(ctx, id); err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Subscription not found")
		}
		log.Errorf("[Subscription] reprovision of %d failed: %v", id, err)
		return jsonError(c, fiber.StatusBadGateway, "provisioning_failed", err.Error())
	}
	return c.JSON(fiber.Map{"ok": true})
}
