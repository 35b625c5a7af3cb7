package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ardikapras/netbill/app/models"
	"github.com/ardikapras/netbill/app/repository"
	"github.com/ardikapras/netbill/internal/pkg/routeros"
)

// HandleAdminListRouterConfigs returns all device configurations.
func HandleAdminListRouterConfigs(c *fiber.Ctx) error {
	cfgs, err := repository.GetGlobalFactory().GetRouterConfigRepository().GetAll()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load router configs")
	}
	return c.JSON(fiber.Map{"configs": cfgs})
}

// HandleAdminCreateRouterConfig stores a new device configuration.
func HandleAdminCreateRouterConfig(c *fiber.Ctx) error {
	var cfg models.RouterConfig
	if err := c.BodyParser(&cfg); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	cfg.ID = 0
	if err := cfg.Validate(); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	if err := repository.GetGlobalFactory().GetRouterConfigRepository().Create(&cfg); err != nil {
		log.Errorf("[Router] failed to create config %s: %v", cfg.Name, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create router config")
	}
	if cfg.IsActive {
		deviceResolver.Invalidate()
	}
	return c.Status(fiber.StatusCreated).JSON(cfg)
}

// HandleAdminUpdateRouterConfig updates a device configuration. The resolver
// drops its cached client so the next provisioning call reconnects.
func HandleAdminUpdateRouterConfig(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "Config id must be a positive integer")
	}

	repo := repository.GetGlobalFactory().GetRouterConfigRepository()
	cfg, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Router config not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load router config")
	}

	if err := c.BodyParser(cfg); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	cfg.ID = id
	if err := cfg.Validate(); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	if err := repo.Update(cfg); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update router config")
	}
	deviceResolver.Invalidate()
	return c.JSON(cfg)
}

// HandleAdminActivateRouterConfig makes one config the active provisioning
// target.
func HandleAdminActivateRouterConfig(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "Config id must be a positive integer")
	}

	if err := repository.GetGlobalFactory().GetRouterConfigRepository().SetActive(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Router config not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to activate router config")
	}
	deviceResolver.Invalidate()
	return c.JSON(fiber.Map{"ok": true})
}

// HandleAdminDeleteRouterConfig removes a device configuration.
func HandleAdminDeleteRouterConfig(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "Config id must be a positive integer")
	}

	if err := repository.GetGlobalFactory().GetRouterConfigRepository().Delete(id); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete router config")
	}
	deviceResolver.Invalidate()
	return c.JSON(fiber.Map{"ok": true})
}

// HandleAdminTestRouterConnection checks reachability and credentials of one
// stored config without touching the resolver cache.
func HandleAdminTestRouterConnection(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "Config id must be a positive integer")
	}

	cfg, err := repository.GetGlobalFactory().GetRouterConfigRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Router config not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load router config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := routeros.NewClient(cfg)
	if err := client.TestConnection(ctx); err != nil {
		status := fiber.StatusBadGateway
		code := "connection_failed"
		if routeros.IsAuthentication(err) {
			status = fiber.StatusUnauthorized
			code = "authentication_failed"
		}
		return jsonError(c, status, code, err.Error())
	}
	return c.JSON(fiber.Map{"ok": true})
}
