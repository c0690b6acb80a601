// controllers/operator_controller.go
package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/ncbadigital/onboarding_backend/config"
	"github.com/ncbadigital/onboarding_backend/middleware"
	"github.com/ncbadigital/onboarding_backend/models"
	"github.com/ncbadigital/onboarding_backend/utils"
)

// OperatorController handles back-office operator sessions.
type OperatorController struct {
	DB     *mongo.Client
	logger *log.Logger
}

// NewOperatorController creates a new operator controller
func NewOperatorController(db *mongo.Client) *OperatorController {
	return &OperatorController{
		DB:     db,
		logger: log.New(os.Stdout, "[AUTH] ", log.LstdFlags),
	}
}

// Login handles POST /api/auth/login
func (oc *OperatorController) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Email and password are required",
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email format",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := config.GetCollection(oc.DB, "operators")

	var operator models.Operator
	err = collection.FindOne(ctx, bson.M{"email": email}).Decode(&operator)
	if err != nil {
		// Same response for unknown email and wrong password.
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid email or password",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.Password), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid email or password",
		})
	}

	if !operator.IsActive {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Operator account is inactive",
		})
	}

	token, err := middleware.GenerateJWT(operator.ID.Hex(), operator.Email, operator.Role)
	if err != nil {
		oc.logger.Printf("Failed to generate token for %s: %v", operator.Email, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create session",
		})
	}

	operator.Password = ""

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Login successful",
		Data: models.LoginResponse{
			Token:    token,
			Operator: operator,
		},
	})
}

// SeedDefaultOperator creates the initial admin operator when the
// operators collection is empty, so a fresh deployment is usable.
// Credentials come from ADMIN_EMAIL / ADMIN_PASSWORD.
func SeedDefaultOperator(db *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := config.GetCollection(db, "operators")

	count, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		log.Printf("Failed to count operators: %v", err)
		return
	}
	if count > 0 {
		return
	}

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("Warning: operators collection is empty and ADMIN_EMAIL/ADMIN_PASSWORD are not set; no operator seeded")
		return
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		log.Printf("Failed to hash admin password: %v", err)
		return
	}

	now := time.Now()
	operator := models.Operator{
		ID:        primitive.NewObjectID(),
		Email:     email,
		Password:  hashed,
		FullName:  "System Administrator",
		Role:      models.RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := collection.InsertOne(ctx, operator); err != nil {
		log.Printf("Failed to seed default operator: %v", err)
		return
	}
	log.Printf("Seeded default admin operator %s", email)
}
