package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccountCategoryCurrent is the only account product opened by the
// onboarding flow.
const AccountCategoryCurrent = "CURRENT"

// Account represents the financial account opened when a customer's
// email OTP verification succeeds. AccountNumber carries a unique index,
// and exactly one account is created per verified customer.
type Account struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	AccountNumber string             `json:"accountNumber" bson:"accountNumber"`
	Balance       float64            `json:"balance" bson:"balance"`
	Category      string             `json:"category" bson:"category"`
	CustomerID    primitive.ObjectID `json:"customerId" bson:"customerId"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
}
