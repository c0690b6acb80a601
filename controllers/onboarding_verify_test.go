// controllers/onboarding_verify_test.go
package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ncbadigital/onboarding_backend/models"
	"github.com/ncbadigital/onboarding_backend/repositories"
	"github.com/ncbadigital/onboarding_backend/utils"
)

// memoryCustomerStore holds a single customer and mirrors the
// repository's PENDING compare-and-swap in CompleteVerification.
type memoryCustomerStore struct {
	mu       sync.Mutex
	customer *models.Customer
}

func (s *memoryCustomerStore) CreateWithDocuments(_ context.Context, customer *models.Customer, _, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customer = customer
	return nil
}

func (s *memoryCustomerStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.customer == nil || s.customer.ID != id {
		return nil, mongo.ErrNoDocuments
	}
	snapshot := *s.customer
	return &snapshot, nil
}

func (s *memoryCustomerStore) SetOTP(_ context.Context, id primitive.ObjectID, hash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.customer == nil || s.customer.ID != id {
		return mongo.ErrNoDocuments
	}
	s.customer.EmailOtpHash = hash
	s.customer.EmailOtpExpiry = &expiresAt
	s.customer.EmailOtpAttempts = 0
	return nil
}

func (s *memoryCustomerStore) IncrementOTPAttempts(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.customer == nil || s.customer.ID != id {
		return mongo.ErrNoDocuments
	}
	s.customer.EmailOtpAttempts++
	return nil
}

func (s *memoryCustomerStore) CompleteVerification(ctx context.Context, id primitive.ObjectID, accounts utils.AccountStore) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.customer == nil || s.customer.ID != id {
		return nil, mongo.ErrNoDocuments
	}
	if s.customer.Status != models.StatusPending {
		return nil, repositories.ErrNotPending
	}
	s.customer.Status = models.StatusVerified
	s.customer.EmailVerified = true
	s.customer.EmailOtpHash = ""
	s.customer.EmailOtpExpiry = nil
	s.customer.EmailOtpAttempts = 0
	return utils.AllocateAccount(ctx, accounts, id)
}

// memoryAccountStore rejects duplicate account numbers like the unique
// index does.
type memoryAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
}

func newMemoryAccountStore() *memoryAccountStore {
	return &memoryAccountStore{accounts: make(map[string]*models.Account)}
}

func (s *memoryAccountStore) Insert(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.AccountNumber]; exists {
		return utils.ErrAccountNumberTaken
	}
	s.accounts[account.AccountNumber] = account
	return nil
}

// verifyFixture wires a controller around the in-memory stores with one
// PENDING customer carrying a live OTP cycle.
type verifyFixture struct {
	oc        *OnboardingController
	store     *memoryCustomerStore
	accounts  *memoryAccountStore
	customer  *models.Customer
	otpCode   string
	wrongCode string
}

func newVerifyFixture(t *testing.T) *verifyFixture {
	t.Helper()
	otp, err := utils.NewOTPManager("test-secret")
	require.NoError(t, err)

	issued, err := otp.Issue()
	require.NoError(t, err)

	customer := &models.Customer{
		ID:             primitive.NewObjectID(),
		FirstName:      "John",
		LastName:       "Mwangi",
		Email:          "john.mwangi@example.com",
		Status:         models.StatusPending,
		EmailOtpHash:   issued.Hash,
		EmailOtpExpiry: &issued.ExpiresAt,
	}

	store := &memoryCustomerStore{customer: customer}
	accounts := newMemoryAccountStore()

	wrong := "000000"
	if issued.Code == wrong {
		wrong = "000001"
	}

	return &verifyFixture{
		oc: &OnboardingController{
			logger:    log.New(os.Stdout, "[ONBOARD] ", log.LstdFlags),
			otp:       otp,
			customers: store,
			accounts:  accounts,
		},
		store:     store,
		accounts:  accounts,
		customer:  customer,
		otpCode:   issued.Code,
		wrongCode: wrong,
	}
}

func verifyBody(customerID primitive.ObjectID, code string) string {
	return fmt.Sprintf(`{"customerId": %q, "otp": %q}`, customerID.Hex(), code)
}

func TestVerifyOTP_CorrectCodeOpensAccount(t *testing.T) {
	e := newTestEcho()
	f := newVerifyFixture(t)

	c, rec := doJSON(e, http.MethodPost, "/api/onboard/verify-otp", verifyBody(f.customer.ID, f.otpCode))
	require.NoError(t, f.oc.VerifyOTP(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusVerified, f.store.customer.Status)
	assert.True(t, f.store.customer.EmailVerified)
	assert.Empty(t, f.store.customer.EmailOtpHash)
	assert.Len(t, f.accounts.accounts, 1)
	for number := range f.accounts.accounts {
		assert.Len(t, number, 9)
	}
}

func TestVerifyOTP_WrongCodeTwiceIncrementsByExactlyTwo(t *testing.T) {
	e := newTestEcho()
	f := newVerifyFixture(t)

	for i := 0; i < 2; i++ {
		c, rec := doJSON(e, http.MethodPost, "/api/onboard/verify-otp", verifyBody(f.customer.ID, f.wrongCode))
		require.NoError(t, f.oc.VerifyOTP(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		assert.Equal(t, "Invalid verification code", resp.Message)
	}

	assert.Equal(t, 2, f.store.customer.EmailOtpAttempts)
	assert.Equal(t, models.StatusPending, f.store.customer.Status)
	assert.Empty(t, f.accounts.accounts)
}

func TestVerifyOTP_LockoutRefusesEvenCorrectCode(t *testing.T) {
	e := newTestEcho()
	f := newVerifyFixture(t)
	f.store.customer.EmailOtpAttempts = utils.MaxVerifyAttempts

	c, rec := doJSON(e, http.MethodPost, "/api/onboard/verify-otp", verifyBody(f.customer.ID, f.otpCode))
	require.NoError(t, f.oc.VerifyOTP(c))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Contains(t, resp.Message, "contact support")
	assert.Equal(t, models.StatusPending, f.store.customer.Status)
	// The lockout check does not consume another attempt
	assert.Equal(t, utils.MaxVerifyAttempts, f.store.customer.EmailOtpAttempts)
	assert.Empty(t, f.accounts.accounts)
}

func TestVerifyOTP_SixthFailureLocksOut(t *testing.T) {
	e := newTestEcho()
	f := newVerifyFixture(t)

	for i := 0; i < utils.MaxVerifyAttempts; i++ {
		c, _ := doJSON(e, http.MethodPost, "/api/onboard/verify-otp", verifyBody(f.customer.ID, f.wrongCode))
		require.NoError(t, f.oc.VerifyOTP(c))
	}
	assert.Equal(t, utils.MaxVerifyAttempts, f.store.customer.EmailOtpAttempts)

	c, rec := doJSON(e, http.MethodPost, "/api/onboard/verify-otp", verifyBody(f.customer.ID, f.otpCode))
	require.NoError(t, f.oc.VerifyOTP(c))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, models.StatusPending, f.store.customer.Status)
	assert.Empty(t, f.accounts.accounts)
}

func TestVerifyOTP_ExpiredCodeIncrementsAttempts(t *testing.T) {
	e := newTestEcho()
	f := newVerifyFixture(t)
	expired := time.Now().Add(-1 * time.Minute).UTC().Truncate(time.Second)
	f.store.customer.EmailOtpExpiry = &expired

	c, rec := doJSON(e, http.MethodPost, "/api/onboard/verify-otp", verifyBody(f.customer.ID, f.otpCode))
	require.NoError(t, f.oc.VerifyOTP(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Contains(t, resp.Message, "expired")
	assert.Equal(t, 1, f.store.customer.EmailOtpAttempts)
	assert.Equal(t, models.StatusPending, f.store.customer.Status)
}

func TestVerifyOTP_NoActiveCycleDoesNotIncrement(t *testing.T) {
	e := newTestEcho()
	f := newVerifyFixture(t)
	f.store.customer.EmailOtpHash = ""
	f.store.customer.EmailOtpExpiry = nil

	c, rec := doJSON(e, http.MethodPost, "/api/onboard/verify-otp", verifyBody(f.customer.ID, "123456"))
	require.NoError(t, f.oc.VerifyOTP(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Contains(t, resp.Message, "No active verification code")
	assert.Equal(t, 0, f.store.customer.EmailOtpAttempts)
}

func TestVerifyOTP_AlreadyVerifiedCustomer(t *testing.T) {
	e := newTestEcho()
	f := newVerifyFixture(t)
	f.store.customer.Status = models.StatusVerified

	c, rec := doJSON(e, http.MethodPost, "/api/onboard/verify-otp", verifyBody(f.customer.ID, f.otpCode))
	require.NoError(t, f.oc.VerifyOTP(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "Customer is already verified", resp.Message)
	assert.Empty(t, f.accounts.accounts)
}

func TestVerifyOTP_RejectedCustomerNotReportedAsVerified(t *testing.T) {
	e := newTestEcho()
	f := newVerifyFixture(t)
	f.store.customer.Status = models.StatusRejected

	c, rec := doJSON(e, http.MethodPost, "/api/onboard/verify-otp", verifyBody(f.customer.ID, f.otpCode))
	require.NoError(t, f.oc.VerifyOTP(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "Customer is not pending verification", resp.Message)
	assert.Equal(t, models.StatusRejected, f.store.customer.Status)
	assert.Empty(t, f.accounts.accounts)
}

func TestVerifyOTP_UnknownCustomer(t *testing.T) {
	e := newTestEcho()
	f := newVerifyFixture(t)

	c, rec := doJSON(e, http.MethodPost, "/api/onboard/verify-otp", verifyBody(primitive.NewObjectID(), f.otpCode))
	require.NoError(t, f.oc.VerifyOTP(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifyOTP_ConcurrentValidVerifiesOpenOneAccount(t *testing.T) {
	e := newTestEcho()
	f := newVerifyFixture(t)

	var wg sync.WaitGroup
	codes := make(chan int, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, rec := doJSON(e, http.MethodPost, "/api/onboard/verify-otp", verifyBody(f.customer.ID, f.otpCode))
			assert.NoError(t, f.oc.VerifyOTP(c))
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	succeeded := 0
	for code := range codes {
		if code == http.StatusOK {
			succeeded++
		} else {
			assert.Equal(t, http.StatusBadRequest, code)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.accounts.accounts, 1)
	assert.Equal(t, models.StatusVerified, f.store.customer.Status)
}

func TestResendOTP_StartsFreshCycle(t *testing.T) {
	e := newTestEcho()
	f := newVerifyFixture(t)
	f.store.customer.EmailOtpAttempts = 3
	previousHash := f.store.customer.EmailOtpHash

	c, rec := doJSON(e, http.MethodPost, "/api/onboard/resend-otp", fmt.Sprintf(`{"customerId": %q}`, f.customer.ID.Hex()))
	require.NoError(t, f.oc.ResendOTP(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, previousHash, f.store.customer.EmailOtpHash)
	assert.Equal(t, 0, f.store.customer.EmailOtpAttempts)
}

func TestResendOTP_RejectedCustomerRefused(t *testing.T) {
	e := newTestEcho()
	f := newVerifyFixture(t)
	f.store.customer.Status = models.StatusFlagged

	c, rec := doJSON(e, http.MethodPost, "/api/onboard/resend-otp", fmt.Sprintf(`{"customerId": %q}`, f.customer.ID.Hex()))
	require.NoError(t, f.oc.ResendOTP(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "Customer is not pending verification", resp.Message)
}
