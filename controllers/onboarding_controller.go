// controllers/onboarding_controller.go
package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ncbadigital/onboarding_backend/models"
	"github.com/ncbadigital/onboarding_backend/repositories"
	"github.com/ncbadigital/onboarding_backend/services"
	"github.com/ncbadigital/onboarding_backend/utils"
)

// customerStore is the slice of customer persistence the onboarding
// pipeline drives. *repositories.CustomerRepository is the production
// implementation; tests substitute an in-memory one.
type customerStore interface {
	CreateWithDocuments(ctx context.Context, customer *models.Customer, profileURL, idFrontURL, idBackURL string) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error)
	SetOTP(ctx context.Context, id primitive.ObjectID, hash string, expiresAt time.Time) error
	IncrementOTPAttempts(ctx context.Context, id primitive.ObjectID) error
	CompleteVerification(ctx context.Context, id primitive.ObjectID, accounts utils.AccountStore) (*models.Account, error)
}

// OnboardingController drives the customer onboarding and verification
// pipeline: validation, OCR cross-check, transactional creation, the
// email OTP lifecycle and account opening.
type OnboardingController struct {
	DB        *mongo.Client
	logger    *log.Logger
	otp       *utils.OTPManager
	extractor services.TextExtractor
	customers customerStore
	accounts  utils.AccountStore
	redis     *redis.Client
}

// NewOnboardingController creates a new onboarding controller
func NewOnboardingController(db *mongo.Client, otp *utils.OTPManager, extractor services.TextExtractor, rdb *redis.Client) *OnboardingController {
	return &OnboardingController{
		DB:        db,
		logger:    log.New(os.Stdout, "[ONBOARD] ", log.LstdFlags),
		otp:       otp,
		extractor: extractor,
		customers: repositories.NewCustomerRepository(db),
		accounts:  repositories.NewAccountRepository(db),
		redis:     rdb,
	}
}

// Onboard handles POST /api/onboard: creates a new customer plus its KYC
// document records and kicks off email verification.
func (oc *OnboardingController) Onboard(c echo.Context) error {
	var req models.OnboardingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	sanitizeOnboardingRequest(&req)

	// Structural validation: every failing field is reported at once.
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    validationMessages(err),
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    map[string]string{"email": "must be a valid email address"},
		})
	}
	req.Email = email

	phone, err := utils.SanitizePhone(req.Phone)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    map[string]string{"phone": "must be a valid phone number"},
		})
	}
	req.Phone = phone

	// Resolve the acting operator; customers are only created by
	// authenticated back-office staff.
	operator, err := utils.GetOperatorFromToken(c, oc.DB)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authenticated operator not found",
		})
	}

	customer := &models.Customer{
		ID:           primitive.NewObjectID(),
		FirstName:    req.FirstName,
		MiddleName:   req.MiddleName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		NationalID:   req.NationalID,
		Nationality:  req.Nationality,
		Address:      req.Address,
		BusinessName: req.BusinessName,
		BusinessType: req.BusinessType,
		Status:       models.StatusPending,
		CreatedBy:    operator.ID,
	}

	// OCR cross-check. Engine unavailability is soft (no evidence); a
	// conflicting extraction is a hard gate. Runs before any write so a
	// mismatch never leaves partial records.
	evidence := oc.extractEvidence(c.Request().Context(), req.IDFrontImageURL)
	if evidence != nil {
		customer.OcrExtractedID = evidence.CandidateID
		customer.OcrExtractedName = evidence.CandidateName
	}
	if err := utils.CrossCheckIdentity(evidence, req.NationalID, customer.FullName()); err != nil {
		oc.logger.Printf("OCR mismatch for %s: %v", req.Email, err)
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Identity document check failed: " + err.Error(),
		})
	}

	// Issue the OTP up front so the hash and expiry land inside the
	// creation transaction and the customer is born with a live cycle.
	issued, err := oc.otp.Issue()
	if err != nil {
		oc.logger.Printf("Failed to issue OTP: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to start email verification",
		})
	}
	customer.EmailOtpHash = issued.Hash
	customer.EmailOtpExpiry = &issued.ExpiresAt
	customer.EmailOtpAttempts = 0

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err = oc.customers.CreateWithDocuments(ctx, customer, req.ProfileImageURL, req.IDFrontImageURL, req.IDBackImageURL)
	if err != nil {
		var conflict *repositories.ConflictError
		if errors.As(err, &conflict) {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "A customer with this " + conflict.Field + " already exists",
			})
		}
		oc.logger.Printf("Failed to create customer %s: %v", req.Email, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create customer",
		})
	}

	// Delivery failure is soft: the customer and OTP state are valid,
	// the caller can trigger a resend.
	if err := utils.SendOTPEmail(customer.Email, customer.FirstName, issued.Code); err != nil {
		oc.logger.Printf("Failed to send OTP email to %s: %v", customer.Email, err)
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Customer onboarded successfully. A verification code has been sent by email.",
		Data: map[string]interface{}{
			"customerId": customer.ID.Hex(),
			"status":     customer.Status,
		},
	})
}

// ResendOTP handles POST /api/onboard/resend-otp: starts a fresh OTP
// cycle for a PENDING customer.
func (oc *OnboardingController) ResendOTP(c echo.Context) error {
	var req models.ResendOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Customer ID is required",
		})
	}

	customerID, err := primitive.ObjectIDFromHex(req.CustomerID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid customer ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	customer, err := oc.customers.FindByID(ctx, customerID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Customer not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve customer",
		})
	}

	if customer.Status == models.StatusVerified {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Customer is already verified",
		})
	}
	if customer.Status != models.StatusPending {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Customer is not pending verification",
		})
	}

	if err := utils.ValidateResendAttempts(req.CustomerID, oc.redis); err != nil {
		if errors.Is(err, utils.ErrTooManyResends) {
			return c.JSON(http.StatusTooManyRequests, models.Response{
				Status:  http.StatusTooManyRequests,
				Message: "Too many resend requests. Please try again later.",
			})
		}
		oc.logger.Printf("Resend throttle check failed for %s: %v", req.CustomerID, err)
	}

	issued, err := oc.otp.Issue()
	if err != nil {
		oc.logger.Printf("Failed to issue OTP: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate verification code",
		})
	}

	if err := oc.customers.SetOTP(ctx, customerID, issued.Hash, issued.ExpiresAt); err != nil {
		oc.logger.Printf("Failed to store OTP for %s: %v", req.CustomerID, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to save verification code",
		})
	}

	if err := utils.SendOTPEmail(customer.Email, customer.FirstName, issued.Code); err != nil {
		oc.logger.Printf("Failed to send OTP email to %s: %v", customer.Email, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "A new verification code has been sent to your email",
	})
}

// VerifyOTP handles POST /api/onboard/verify-otp: checks the supplied
// code and, on success, atomically promotes the customer to VERIFIED and
// opens the account.
func (oc *OnboardingController) VerifyOTP(c echo.Context) error {
	var req models.VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Customer ID and a 6-digit code are required",
		})
	}

	customerID, err := primitive.ObjectIDFromHex(req.CustomerID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid customer ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	customer, err := oc.customers.FindByID(ctx, customerID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Customer not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve customer",
		})
	}

	if customer.Status == models.StatusVerified {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Customer is already verified",
		})
	}
	if customer.Status != models.StatusPending {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Customer is not pending verification",
		})
	}

	// Hard lockout: no auto-reset, only an explicit resend starts a
	// fresh cycle.
	if customer.EmailOtpAttempts >= utils.MaxVerifyAttempts {
		return c.JSON(http.StatusTooManyRequests, models.Response{
			Status:  http.StatusTooManyRequests,
			Message: "Too many failed attempts. Please contact support.",
		})
	}

	switch oc.otp.Verify(req.OTP, customer.EmailOtpHash, customer.EmailOtpExpiry) {
	case utils.OTPValid:
		account, err := oc.customers.CompleteVerification(ctx, customerID, oc.accounts)
		if err != nil {
			// Lost the PENDING compare-and-swap: a racing verify won,
			// or an administrative edit moved the status meanwhile.
			if errors.Is(err, repositories.ErrNotPending) {
				return c.JSON(http.StatusBadRequest, models.Response{
					Status:  http.StatusBadRequest,
					Message: "Customer is no longer pending verification",
				})
			}
			oc.logger.Printf("Failed to complete verification for %s: %v", req.CustomerID, err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to complete verification",
			})
		}

		// Fire-and-forget: the account is open whether or not the
		// welcome mail makes it out.
		go func(email, name, number string) {
			if err := utils.SendAccountReadyEmail(email, name, number); err != nil {
				oc.logger.Printf("Failed to send account-ready email to %s: %v", email, err)
			}
		}(customer.Email, customer.FirstName, account.AccountNumber)

		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Email verification successful. Account status is now VERIFIED.",
			Data: map[string]interface{}{
				"status":        models.StatusVerified,
				"accountNumber": account.AccountNumber,
			},
		})

	case utils.OTPExpired:
		oc.recordFailedAttempt(ctx, customerID)
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Verification code expired. Please request a new code.",
		})

	case utils.OTPMissing:
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "No active verification code. Please request a new code.",
		})

	default:
		oc.recordFailedAttempt(ctx, customerID)
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid verification code",
		})
	}
}

// recordFailedAttempt bumps the attempt counter. The increment is
// best-effort: if it fails the verification verdict is still returned
// and the counter may under-count.
func (oc *OnboardingController) recordFailedAttempt(ctx context.Context, customerID primitive.ObjectID) {
	if err := oc.customers.IncrementOTPAttempts(ctx, customerID); err != nil {
		oc.logger.Printf("Failed to increment OTP attempts for %s: %v", customerID.Hex(), err)
	}
}

// extractEvidence runs OCR on the ID front image. Any extraction failure
// is logged and reported as nil evidence, never as a pipeline error.
func (oc *OnboardingController) extractEvidence(ctx context.Context, imageLocator string) *utils.OcrEvidence {
	if oc.extractor == nil {
		return nil
	}
	text, err := oc.extractor.ExtractText(ctx, imageLocator)
	if err != nil {
		oc.logger.Printf("OCR extraction unavailable for %s: %v", imageLocator, err)
		return nil
	}
	evidence := utils.ParseIDAndName(text)
	return &evidence
}

func sanitizeOnboardingRequest(req *models.OnboardingRequest) {
	req.FirstName = utils.SanitizeInput(req.FirstName)
	req.MiddleName = utils.SanitizeInput(req.MiddleName)
	req.LastName = utils.SanitizeInput(req.LastName)
	req.NationalID = utils.SanitizeInput(req.NationalID)
	req.Nationality = utils.SanitizeInput(req.Nationality)
	req.Address = utils.SanitizeInput(req.Address)
	req.BusinessName = utils.SanitizeInput(req.BusinessName)
	req.BusinessType = utils.SanitizeInput(req.BusinessType)
}

// validationMessages flattens validator errors into a field -> message
// map so the caller sees every failing field at once.
func validationMessages(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["request"] = "is invalid"
		return fields
	}
	for _, fe := range verrs {
		fields[fe.Field()] = tagMessage(fe)
	}
	return fields
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "numeric":
		return "must contain only digits"
	}
	return "is invalid"
}
