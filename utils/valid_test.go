// utils/valid_test.go
package utils

import (
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "John Mwangi", SanitizeInput("  John Mwangi  "))
	assert.Equal(t, "&lt;script&gt;", SanitizeInput("<script>"))
	assert.Equal(t, "abc", SanitizeInput("a\x00b\x1fc"))
}

func TestSanitizeEmail(t *testing.T) {
	email, err := SanitizeEmail("  John.Mwangi@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "john.mwangi@example.com", email)

	_, err = SanitizeEmail("not-an-email")
	assert.Error(t, err)

	_, err = SanitizeEmail("missing@tld")
	assert.Error(t, err)
}

func TestSanitizePhone(t *testing.T) {
	phone, err := SanitizePhone("+254 712 345-678")
	require.NoError(t, err)
	assert.Equal(t, "+254712345678", phone)

	// Missing plus gets prefixed
	phone, err = SanitizePhone("254712345678")
	require.NoError(t, err)
	assert.Equal(t, "+254712345678", phone)

	_, err = SanitizePhone("12345")
	assert.Error(t, err)
}

func TestIsValidImageFile(t *testing.T) {
	assert.True(t, IsValidImageFile(&multipart.FileHeader{Filename: "id_front.jpg"}))
	assert.True(t, IsValidImageFile(&multipart.FileHeader{Filename: "ID_BACK.PNG"}))
	assert.True(t, IsValidImageFile(&multipart.FileHeader{Filename: "selfie.jpeg"}))
	assert.False(t, IsValidImageFile(&multipart.FileHeader{Filename: "doc.pdf"}))
	assert.False(t, IsValidImageFile(&multipart.FileHeader{Filename: "archive.zip"}))
}

func TestValidateFile(t *testing.T) {
	assert.NoError(t, ValidateFile("id_front.jpg", 1024))
	assert.Error(t, ValidateFile("id_front.jpg", 6*1024*1024))
	assert.Error(t, ValidateFile("doc.pdf", 1024))
}
