package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ardikapras/netbill/app/models"
	"github.com/ardikapras/netbill/app/repository"
)

// HandleListPackages returns active packages for the customer-facing catalog.
func HandleListPackages(c *fiber.Ctx) error {
	pkgs, err := repository.GetGlobalFactory().GetPackageRepository().GetActive()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load packages")
	}
	return c.JSON(fiber.Map{"packages": pkgs})
}

// HandleGetPackage returns one package by id.
func HandleGetPackage(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "Package id must be a positive integer")
	}

	pkg, err := repository.GetGlobalFactory().GetPackageRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Package not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load package")
	}
	return c.JSON(pkg)
}

// HandleAdminListPackages returns all packages, active or not.
func HandleAdminListPackages(c *fiber.Ctx) error {
	pkgs, err := repository.GetGlobalFactory().GetPackageRepository().GetAll()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load packages")
	}
	return c.JSON(fiber.Map{"packages": pkgs})
}

// HandleAdminCreatePackage creates a new sellable package.
func HandleAdminCreatePackage(c *fiber.Ctx) error {
	var pkg models.Package
	if err := c.BodyParser(&pkg); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	pkg.ID = 0
	if pkg.RouterProfile == "" {
		pkg.RouterProfile = "default"
	}
	if err := pkg.Validate(); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	if err := repository.GetGlobalFactory().GetPackageRepository().Create(&pkg); err != nil {
		log.Errorf("[Package] failed to create package %s: %v", pkg.Name, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create package")
	}
	return c.Status(fiber.StatusCreated).JSON(pkg)
}

// HandleAdminUpdatePackage updates an existing package.
func HandleAdminUpdatePackage(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "Package id must be a positive integer")
	}

	repo := repository.GetGlobalFactory().GetPackageRepository()
	pkg, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Package not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load package")
	}

	if err := c.BodyParser(pkg); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	pkg.ID = id
	if err := pkg.Validate(); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	if err := repo.Update(pkg); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update package")
	}
	return c.JSON(pkg)
}

// HandleAdminDeactivatePackage takes a package off sale. Existing
// subscriptions keep running until they expire.
func HandleAdminDeactivatePackage(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "Package id must be a positive integer")
	}

	if err := repository.GetGlobalFactory().GetPackageRepository().Deactivate(id); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to deactivate package")
	}
	return c.JSON(fiber.Map{"ok": true})
}
