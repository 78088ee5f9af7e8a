package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gamme-qc/internal/config"
	"github.com/localnerve/gamme-qc/internal/services"
	"github.com/localnerve/gamme-qc/internal/types"
)

var authCfg *config.Config

// SetConfig provides the configuration used for lazy Authorizer initialization
func SetConfig(cfg *config.Config) {
	authCfg = cfg
}

// AuthAdmin validates that the request has admin role authorization
func AuthAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, []string{"admin"}, "qc.authorization.admin")
	}
}

// AuthOperator validates that the request has operator role authorization
func AuthOperator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, []string{"operateur", "admin"}, "qc.authorization.operateur")
	}
}

// AuthStaff validates that the request has any staff role authorization
func AuthStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, []string{"operateur", "responsable", "ro", "admin"}, "qc.authorization.staff")
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, roles []string, errorType string) error {
	if !services.IsAuthorizerInitialized() && authCfg != nil {
		if err := services.InitAuthorizer(authCfg, c.Protocol(), c.Hostname()); err != nil {
			return &types.CustomError{
				Code:    fiber.StatusServiceUnavailable,
				Message: fmt.Sprintf("Authorizer unavailable: %v", err),
				Type:    errorType,
			}
		}
	}

	session := c.Cookies("cookie_session")
	if session == "" {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: "Authorizer cookie \"cookie_session\" not found",
			Type:    errorType,
		}
	}

	data, err := services.ValidateSession(session, roles)
	if err != nil {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: fmt.Sprintf("Invalid session: %v", err),
			Type:    errorType,
		}
	}

	if user, ok := data["user"]; ok {
		c.Locals("user", user)
	}
	if email, ok := data["email"].(string); ok {
		c.Locals("userEmail", email)
	}

	return c.Next()
}
