// controllers/customer_controller.go
package controllers

import (
	"bytes"
	"context"
	"image/png"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ncbadigital/onboarding_backend/models"
	"github.com/ncbadigital/onboarding_backend/repositories"
	"github.com/ncbadigital/onboarding_backend/utils"
)

// CustomerController exposes the administrative review surface over
// onboarded customers and their accounts.
type CustomerController struct {
	DB        *mongo.Client
	logger    *log.Logger
	customers *repositories.CustomerRepository
	accounts  *repositories.AccountRepository
}

// NewCustomerController creates a new customer controller
func NewCustomerController(db *mongo.Client) *CustomerController {
	return &CustomerController{
		DB:        db,
		logger:    log.New(os.Stdout, "[CUSTOMERS] ", log.LstdFlags),
		customers: repositories.NewCustomerRepository(db),
		accounts:  repositories.NewAccountRepository(db),
	}
}

// GetCustomers handles GET /api/customers
func (cc *CustomerController) GetCustomers(c echo.Context) error {
	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	customers, err := cc.customers.List(ctx, page, limit)
	if err != nil {
		cc.logger.Printf("Failed to list customers: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve customers",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Customers retrieved successfully",
		Data:    customers,
	})
}

// GetCustomer handles GET /api/customers/:id
func (cc *CustomerController) GetCustomer(c echo.Context) error {
	customerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid customer ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	customer, err := cc.customers.FindByID(ctx, customerID)
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

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Customer retrieved successfully",
		Data:    customer,
	})
}

// UpdateCustomerStatus handles PUT /api/customers/:id/status.
// Administrative edits may reject or flag a customer; VERIFIED is only
// reachable through OTP verification and is refused here.
func (cc *CustomerController) UpdateCustomerStatus(c echo.Context) error {
	customerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid customer ID",
		})
	}

	var req models.UpdateCustomerStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	if !req.Status.IsValid() || req.Status == models.StatusVerified {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Status must be one of PENDING, REJECTED, FLAGGED",
		})
	}
	if req.Status == models.StatusFlagged && req.FlagReason == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "A flag reason is required when flagging a customer",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	customer, err := cc.customers.FindByID(ctx, customerID)
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

	if !customer.Status.CanTransitionTo(req.Status) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Cannot change status from " + string(customer.Status) + " to " + string(req.Status),
		})
	}

	flagReason := utils.SanitizeInput(req.FlagReason)
	if err := cc.customers.UpdateStatus(ctx, customerID, customer.Status, req.Status, flagReason); err != nil {
		if err == mongo.ErrNoDocuments {
			// The status moved under us; report the conflict rather
			// than applying a stale edit.
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Customer status changed concurrently. Please reload and retry.",
			})
		}
		cc.logger.Printf("Failed to update status for %s: %v", customerID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update customer status",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Customer status updated successfully",
		Data: map[string]interface{}{
			"customerId": customerID.Hex(),
			"status":     req.Status,
		},
	})
}

// GetCustomerAccount handles GET /api/customers/:id/account
func (cc *CustomerController) GetCustomerAccount(c echo.Context) error {
	customerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid customer ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	account, err := cc.accounts.FindByCustomerID(ctx, customerID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "No account exists for this customer",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve account",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Account retrieved successfully",
		Data:    account,
	})
}

// GetAccountQRCode handles GET /api/customers/:id/account/qr and renders
// the account number as a PNG QR code.
func (cc *CustomerController) GetAccountQRCode(c echo.Context) error {
	customerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid customer ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	account, err := cc.accounts.FindByCustomerID(ctx, customerID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "No account exists for this customer",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve account",
		})
	}

	qrCode, err := qr.Encode(account.AccountNumber, qr.M, qr.Auto)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate QR code: " + err.Error(),
		})
	}

	scaled, err := barcode.Scale(qrCode, 200, 200)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to scale QR code: " + err.Error(),
		})
	}

	buffer := new(bytes.Buffer)
	if err := png.Encode(buffer, scaled); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to encode QR code as PNG: " + err.Error(),
		})
	}

	c.Response().Header().Set("Content-Disposition", "inline; filename=account-"+account.AccountNumber+".png")
	return c.Blob(http.StatusOK, "image/png", buffer.Bytes())
}
