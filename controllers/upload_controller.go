// controllers/upload_controller.go
package controllers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ncbadigital/onboarding_backend/models"
	"github.com/ncbadigital/onboarding_backend/utils"
)

const kycUploadDir = "uploads/kyc"

// UploadController stores KYC images (profile photo, ID front/back) and
// returns the locator the onboarding form submits.
type UploadController struct{}

// NewUploadController creates a new upload controller
func NewUploadController() *UploadController {
	return &UploadController{}
}

// UploadKYCImage handles POST /api/upload/kyc
func (uc *UploadController) UploadKYCImage(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "No file provided",
		})
	}

	if !utils.IsValidImageFile(file) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Only JPG and PNG images are accepted",
		})
	}
	if err := utils.ValidateFile(file.Filename, file.Size); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	if err := os.MkdirAll(kycUploadDir, 0755); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to prepare upload directory",
		})
	}

	filename := uuid.New().String() + filepath.Ext(file.Filename)
	dstPath := filepath.Join(kycUploadDir, filename)

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to read uploaded file",
		})
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to store uploaded file",
		})
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to store uploaded file",
		})
	}

	// Absolute URL so the stored locator also works for the OCR engine.
	scheme := c.Scheme()
	if forwarded := c.Request().Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	url := fmt.Sprintf("%s://%s/uploads/kyc/%s", scheme, c.Request().Host, filename)

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "File uploaded successfully",
		Data: map[string]string{
			"url": url,
		},
	})
}
