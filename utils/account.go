// utils/account.go
package utils

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ncbadigital/onboarding_backend/models"
)

// ErrAccountNumberTaken is returned by an AccountStore when the unique
// index on accountNumber rejects an insert. The allocator treats it as a
// signal to draw a new number.
var ErrAccountNumberTaken = errors.New("account number already exists")

// AccountStore is the slice of persistence the allocator needs: an
// insert that fails with ErrAccountNumberTaken instead of silently
// duplicating a number.
type AccountStore interface {
	Insert(ctx context.Context, account *models.Account) error
}

// maxAllocateRetries bounds the draw-and-insert loop. With nine hundred
// million candidate numbers the bound exists only to fail loudly on a
// broken store instead of spinning forever.
const maxAllocateRetries = 50

// GenerateAccountNumber draws a uniformly random 9-digit account number
// (100000000-999999999) from crypto/rand.
func GenerateAccountNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000000), nil
}

// AllocateAccount creates the customer's account under a fresh unique
// account number. Uniqueness is enforced by the store's index; a
// conflict just retries with a new candidate, so concurrent allocations
// can never double-issue a number. The passed context may be a Mongo
// session context so the insert joins the verification transaction.
func AllocateAccount(ctx context.Context, store AccountStore, customerID primitive.ObjectID) (*models.Account, error) {
	for i := 0; i < maxAllocateRetries; i++ {
		number, err := GenerateAccountNumber()
		if err != nil {
			return nil, fmt.Errorf("failed to generate account number: %w", err)
		}

		account := &models.Account{
			ID:            primitive.NewObjectID(),
			AccountNumber: number,
			Balance:       0,
			Category:      models.AccountCategoryCurrent,
			CustomerID:    customerID,
			CreatedAt:     time.Now(),
		}

		err = store.Insert(ctx, account)
		if err == nil {
			return account, nil
		}
		if errors.Is(err, ErrAccountNumberTaken) {
			continue
		}
		return nil, err
	}
	return nil, errors.New("exhausted retries allocating a unique account number")
}
