package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ardikapras/netbill/app/models"
	"github.com/ardikapras/netbill/app/repository"
)

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// HandleRegister creates a new customer account.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := models.CreateUser(req.Name, req.Username, req.Email, req.Phone, req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if existing, err := repo.GetByUsername(req.Username); err == nil && existing != nil {
		return jsonError(c, fiber.StatusConflict, "username_taken", "Username is already registered")
	}

	if err := repo.Create(user); err != nil {
		log.Errorf("[Auth] failed to create user %s: %v", req.Username, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create user")
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and returns the account. Token issuance is
// left to the deployment's edge; this endpoint exists for credential checks
// from the portal frontend.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByUsername(strings.ToLower(strings.TrimSpace(req.Username)))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "Username or password is wrong")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	if !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "Username or password is wrong")
	}
	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "account_disabled", "Account is not active")
	}

	return c.JSON(user)
}
