// models/customer.go
package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CustomerStatus is the verification state of an onboarded customer.
type CustomerStatus string

const (
	StatusPending  CustomerStatus = "PENDING"
	StatusVerified CustomerStatus = "VERIFIED"
	StatusRejected CustomerStatus = "REJECTED"
	StatusFlagged  CustomerStatus = "FLAGGED"
)

// IsValid reports whether s is one of the known customer statuses.
func (s CustomerStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected, StatusFlagged:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status change is allowed.
// VERIFIED is only reachable from PENDING, and only the OTP verification
// flow performs that transition; administrative edits may move a PENDING
// customer to REJECTED or FLAGGED and back.
func (s CustomerStatus) CanTransitionTo(target CustomerStatus) bool {
	if !target.IsValid() || s == target {
		return false
	}
	switch s {
	case StatusPending:
		return target == StatusVerified || target == StatusRejected || target == StatusFlagged
	case StatusFlagged:
		return target == StatusPending || target == StatusRejected
	case StatusRejected:
		return target == StatusPending
	case StatusVerified:
		// Terminal for the automated flow.
		return false
	}
	return false
}

// Customer model
type Customer struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	FirstName    string             `json:"firstName" bson:"firstName"`
	MiddleName   string             `json:"middleName,omitempty" bson:"middleName,omitempty"`
	LastName     string             `json:"lastName" bson:"lastName"`
	Email        string             `json:"email" bson:"email"`
	Phone        string             `json:"phone" bson:"phone"`
	NationalID   string             `json:"nationalId" bson:"nationalId"`
	Nationality  string             `json:"nationality" bson:"nationality"`
	Address      string             `json:"address,omitempty" bson:"address,omitempty"`
	BusinessName string             `json:"businessName,omitempty" bson:"businessName,omitempty"`
	BusinessType string             `json:"businessType,omitempty" bson:"businessType,omitempty"`

	ProfileImageID primitive.ObjectID `json:"profileImageId" bson:"profileImageId"`
	IDFrontImageID primitive.ObjectID `json:"idFrontImageId" bson:"idFrontImageId"`
	IDBackImageID  primitive.ObjectID `json:"idBackImageId" bson:"idBackImageId"`

	// Populated from OCR when the extraction engine was reachable.
	OcrExtractedID   string `json:"ocrExtractedId,omitempty" bson:"ocrExtractedId,omitempty"`
	OcrExtractedName string `json:"ocrExtractedName,omitempty" bson:"ocrExtractedName,omitempty"`

	EmailOtpHash     string     `json:"-" bson:"emailOtpHash,omitempty"`
	EmailOtpExpiry   *time.Time `json:"-" bson:"emailOtpExpiry,omitempty"`
	EmailOtpAttempts int        `json:"emailOtpAttempts" bson:"emailOtpAttempts"`
	EmailVerified    bool       `json:"emailVerified" bson:"emailVerified"`

	Status     CustomerStatus     `json:"status" bson:"status"`
	FlagReason string             `json:"flagReason,omitempty" bson:"flagReason,omitempty"`
	CreatedBy  primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// FullName returns the customer's submitted name with the middle name
// included when present.
func (c *Customer) FullName() string {
	if c.MiddleName != "" {
		return fmt.Sprintf("%s %s %s", c.FirstName, c.MiddleName, c.LastName)
	}
	return fmt.Sprintf("%s %s", c.FirstName, c.LastName)
}

// OnboardingRequest is the payload for POST /api/onboard
type OnboardingRequest struct {
	FirstName    string `json:"firstName" validate:"required"`
	MiddleName   string `json:"middleName"`
	LastName     string `json:"lastName" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,min=10"`
	NationalID   string `json:"nationalId" validate:"required,min=6"`
	Nationality  string `json:"nationality" validate:"required"`
	Address      string `json:"address"`
	BusinessName string `json:"businessName"`
	BusinessType string `json:"businessType"`

	ProfileImageURL string `json:"profileImageUrl" validate:"required,url"`
	IDFrontImageURL string `json:"idFrontImageUrl" validate:"required,url"`
	IDBackImageURL  string `json:"idBackImageUrl" validate:"required,url"`
}

// VerifyOTPRequest is the payload for POST /api/onboard/verify-otp
type VerifyOTPRequest struct {
	CustomerID string `json:"customerId" validate:"required"`
	OTP        string `json:"otp" validate:"required,len=6,numeric"`
}

// ResendOTPRequest is the payload for POST /api/onboard/resend-otp
type ResendOTPRequest struct {
	CustomerID string `json:"customerId" validate:"required"`
}

// UpdateCustomerStatusRequest is the payload for administrative status edits
type UpdateCustomerStatusRequest struct {
	Status     CustomerStatus `json:"status" validate:"required"`
	FlagReason string         `json:"flagReason"`
}

// Response model
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
