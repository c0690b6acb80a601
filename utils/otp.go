// utils/otp.go
package utils

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"
)

// OTPResult is the outcome of checking a supplied code against the
// stored hash and expiry.
type OTPResult string

const (
	OTPValid   OTPResult = "valid"
	OTPExpired OTPResult = "expired"
	OTPInvalid OTPResult = "invalid"
	OTPMissing OTPResult = "missing"
)

// OTPValidity is how long an issued code can be redeemed.
const OTPValidity = 10 * time.Minute

// MaxVerifyAttempts is the hard lockout threshold for failed
// verifications on a single OTP cycle.
const MaxVerifyAttempts = 5

// ErrTooManyResends is returned when the hourly resend budget for a
// customer is exhausted.
var ErrTooManyResends = errors.New("too many OTP resend requests")

// IssuedOTP is the result of generating a fresh email OTP. Only the hash
// and expiry are persisted; the plaintext code goes out by email and is
// never stored.
type IssuedOTP struct {
	Code      string
	Hash      string
	ExpiresAt time.Time
}

// OTPManager issues and verifies email OTP codes. The HMAC secret is
// validated once at startup; verification never reads configuration
// ambiently.
type OTPManager struct {
	secret []byte
}

// NewOTPManager creates an OTP manager from the process-wide signing
// secret. An empty secret is a configuration error.
func NewOTPManager(secret string) (*OTPManager, error) {
	if secret == "" {
		return nil, errors.New("OTP secret must not be empty")
	}
	return &OTPManager{secret: []byte(secret)}, nil
}

// Issue generates a 6-digit code with a 10-minute expiry and the HMAC
// hash binding the code to that exact expiry.
func (m *OTPManager) Issue() (*IssuedOTP, error) {
	code, err := generateOTPCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}
	expiresAt := time.Now().Add(OTPValidity).UTC().Truncate(time.Second)
	return &IssuedOTP{
		Code:      code,
		Hash:      m.hash(code, expiresAt),
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks a supplied code against the stored hash and expiry.
// Expiry is checked before the hash so an expired-but-correct code
// reports expired, and the hash comparison is constant time.
func (m *OTPManager) Verify(code, storedHash string, storedExpiry *time.Time) OTPResult {
	if storedHash == "" || storedExpiry == nil {
		return OTPMissing
	}
	if time.Now().After(*storedExpiry) {
		return OTPExpired
	}
	expected, err := hex.DecodeString(m.hash(code, *storedExpiry))
	if err != nil {
		return OTPInvalid
	}
	stored, err := hex.DecodeString(storedHash)
	if err != nil {
		return OTPInvalid
	}
	if hmac.Equal(expected, stored) {
		return OTPValid
	}
	return OTPInvalid
}

// hash computes the hex HMAC-SHA256 over "code|expiry" with the expiry
// rendered in RFC 3339 UTC. Issue and Verify must agree on this exact
// byte string.
func (m *OTPManager) hash(code string, expiresAt time.Time) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(code + "|" + expiresAt.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(mac.Sum(nil))
}

// generateOTPCode draws a uniformly random 6-digit code (100000-999999)
// from crypto/rand.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// ValidateResendAttempts caps OTP resends per customer to 5 per hour.
// A nil Redis client disables the cap rather than blocking resends.
func ValidateResendAttempts(customerID string, rdb *redis.Client) error {
	if rdb == nil {
		return nil
	}
	key := "otp_resend:" + customerID
	attempts, err := rdb.Incr(context.Background(), key).Result()
	if err != nil {
		return err
	}

	// Set expiry if first attempt
	if attempts == 1 {
		rdb.Expire(context.Background(), key, 1*time.Hour)
	}

	if attempts > 5 {
		return ErrTooManyResends
	}

	return nil
}
