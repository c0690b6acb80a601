// utils/auth.go
package utils

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/ncbadigital/onboarding_backend/config"
	"github.com/ncbadigital/onboarding_backend/middleware"
	"github.com/ncbadigital/onboarding_backend/models"
)

// HashPassword hashes an operator password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GetOperatorFromToken resolves the acting operator from the JWT claims
// and loads the full record from the database. The operator must exist
// and be active before it may create customers.
func GetOperatorFromToken(c echo.Context, db *mongo.Client) (*models.Operator, error) {
	userToken := c.Get("user")
	if userToken == nil {
		return nil, errors.New("no token found")
	}

	token, ok := userToken.(*jwt.Token)
	if !ok {
		return nil, errors.New("invalid token type")
	}

	claims, ok := token.Claims.(*middleware.JwtCustomClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	operatorID, err := primitive.ObjectIDFromHex(claims.OperatorID)
	if err != nil {
		return nil, errors.New("invalid operator ID format")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := config.GetCollection(db, "operators")
	var operator models.Operator
	err = collection.FindOne(ctx, bson.M{"_id": operatorID}).Decode(&operator)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.New("operator not found")
		}
		return nil, errors.New("error retrieving operator")
	}

	if !operator.IsActive {
		return nil, errors.New("operator account is inactive")
	}

	// Don't return password hash
	operator.Password = ""

	return &operator, nil
}
