// utils/otp_test.go
package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOTPManager_EmptySecret(t *testing.T) {
	m, err := NewOTPManager("")
	assert.Error(t, err)
	assert.Nil(t, m)
}

func TestOTPManager_IssueProducesSixDigitCode(t *testing.T) {
	m, err := NewOTPManager("test-secret")
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		issued, err := m.Issue()
		require.NoError(t, err)
		assert.Len(t, issued.Code, 6)
		assert.GreaterOrEqual(t, issued.Code, "100000")
		assert.LessOrEqual(t, issued.Code, "999999")
		assert.NotEmpty(t, issued.Hash)
		assert.WithinDuration(t, time.Now().Add(OTPValidity), issued.ExpiresAt, 2*time.Second)
	}
}

func TestOTPManager_VerifyRoundTrip(t *testing.T) {
	m, err := NewOTPManager("test-secret")
	require.NoError(t, err)

	issued, err := m.Issue()
	require.NoError(t, err)

	result := m.Verify(issued.Code, issued.Hash, &issued.ExpiresAt)
	assert.Equal(t, OTPValid, result)
}

func TestOTPManager_VerifyWrongCode(t *testing.T) {
	m, err := NewOTPManager("test-secret")
	require.NoError(t, err)

	issued, err := m.Issue()
	require.NoError(t, err)

	wrong := "000000"
	if issued.Code == wrong {
		wrong = "000001"
	}
	result := m.Verify(wrong, issued.Hash, &issued.ExpiresAt)
	assert.Equal(t, OTPInvalid, result)
}

func TestOTPManager_VerifyExpired(t *testing.T) {
	m, err := NewOTPManager("test-secret")
	require.NoError(t, err)

	expiresAt := time.Now().Add(-1 * time.Minute).UTC().Truncate(time.Second)
	hash := m.hash("123456", expiresAt)

	// Even the correct code reports expired, not invalid
	result := m.Verify("123456", hash, &expiresAt)
	assert.Equal(t, OTPExpired, result)
}

func TestOTPManager_VerifyMissing(t *testing.T) {
	m, err := NewOTPManager("test-secret")
	require.NoError(t, err)

	expiry := time.Now().Add(OTPValidity)
	assert.Equal(t, OTPMissing, m.Verify("123456", "", &expiry))
	assert.Equal(t, OTPMissing, m.Verify("123456", "somehash", nil))
}

func TestOTPManager_HashBoundToExpiry(t *testing.T) {
	m, err := NewOTPManager("test-secret")
	require.NoError(t, err)

	issued, err := m.Issue()
	require.NoError(t, err)

	// Tampering with the stored expiry invalidates the hash
	extended := issued.ExpiresAt.Add(1 * time.Hour)
	result := m.Verify(issued.Code, issued.Hash, &extended)
	assert.Equal(t, OTPInvalid, result)
}

func TestOTPManager_DifferentSecretsDisagree(t *testing.T) {
	m1, err := NewOTPManager("secret-one")
	require.NoError(t, err)
	m2, err := NewOTPManager("secret-two")
	require.NoError(t, err)

	issued, err := m1.Issue()
	require.NoError(t, err)

	result := m2.Verify(issued.Code, issued.Hash, &issued.ExpiresAt)
	assert.Equal(t, OTPInvalid, result)
}

func TestValidateResendAttempts_NilRedis(t *testing.T) {
	// Without Redis the throttle degrades to a no-op
	err := ValidateResendAttempts("customer-1", nil)
	assert.NoError(t, err)
}
