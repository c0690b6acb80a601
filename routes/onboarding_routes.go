package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/ncbadigital/onboarding_backend/controllers"
	"github.com/ncbadigital/onboarding_backend/middleware"
)

// RegisterOnboardingRoutes sets up authentication and the onboarding
// pipeline routes.
func RegisterOnboardingRoutes(e *echo.Echo, operatorController *controllers.OperatorController, onboardingController *controllers.OnboardingController, uploadController *controllers.UploadController) {
	// Public operator authentication
	e.POST("/api/auth/login", operatorController.Login)

	// Onboarding requires an authenticated operator
	protected := e.Group("/api", middleware.JWTMiddleware())
	protected.POST("/onboard", onboardingController.Onboard)
	protected.POST("/upload/kyc", uploadController.UploadKYCImage)

	// The customer completes verification themselves; these only need
	// the customer id from the emailed link.
	e.POST("/api/onboard/resend-otp", onboardingController.ResendOTP)
	e.POST("/api/onboard/verify-otp", onboardingController.VerifyOTP)
}
