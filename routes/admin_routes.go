package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/ncbadigital/onboarding_backend/controllers"
	"github.com/ncbadigital/onboarding_backend/middleware"
	"github.com/ncbadigital/onboarding_backend/models"
)

// RegisterAdminRoutes sets up the administrative customer-review routes.
func RegisterAdminRoutes(e *echo.Echo, customerController *controllers.CustomerController) {
	admin := e.Group("/api/customers", middleware.JWTMiddleware(), middleware.RequireRole(models.RoleAdmin, models.RoleOfficer))

	admin.GET("", customerController.GetCustomers)
	admin.GET("/:id", customerController.GetCustomer)
	admin.GET("/:id/account", customerController.GetCustomerAccount)
	admin.GET("/:id/account/qr", customerController.GetAccountQRCode)

	// Status edits (reject/flag) are reserved for admins.
	admin.PUT("/:id/status", customerController.UpdateCustomerStatus, middleware.RequireRole(models.RoleAdmin))
}
