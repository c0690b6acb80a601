package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/ncbadigital/onboarding_backend/config"
	"github.com/ncbadigital/onboarding_backend/controllers"
	"github.com/ncbadigital/onboarding_backend/middleware"
	"github.com/ncbadigital/onboarding_backend/routes"
	"github.com/ncbadigital/onboarding_backend/services"
	"github.com/ncbadigital/onboarding_backend/utils"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// The OTP signing secret is mandatory; refusing to start beats
	// issuing unverifiable codes.
	otpManager, err := utils.NewOTPManager(os.Getenv("EMAIL_OTP_SECRET"))
	if err != nil {
		log.Fatal("EMAIL_OTP_SECRET environment variable is required: ", err)
	}

	// Connect to Redis (backs the OTP resend throttle; optional)
	redisClient := config.ConnectRedis()
	defer config.CloseRedis()

	// Connect to database
	client := config.ConnectDB()

	// Ensure a usable operator exists on a fresh deployment
	controllers.SeedDefaultOperator(client)

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator using json field names in messages
	v := validator.New()
	v.RegisterTagNameFunc(utils.JSONTagName)
	e.Validator = &CustomValidator{validator: v}

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeaders())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Onboarding Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Initialize controllers
	ocrService := services.NewOCRService()
	operatorController := controllers.NewOperatorController(client)
	onboardingController := controllers.NewOnboardingController(client, otpManager, ocrService, redisClient)
	uploadController := controllers.NewUploadController()
	customerController := controllers.NewCustomerController(client)

	// Register routes
	routes.RegisterOnboardingRoutes(e, operatorController, onboardingController, uploadController)
	routes.RegisterAdminRoutes(e, customerController)

	// Ensure uploads directory exists and serve it
	os.MkdirAll("uploads/kyc", 0755)
	e.Static("/uploads", "uploads")

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}
