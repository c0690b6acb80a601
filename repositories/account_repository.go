package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ncbadigital/onboarding_backend/config"
	"github.com/ncbadigital/onboarding_backend/models"
	"github.com/ncbadigital/onboarding_backend/utils"
)

// AccountRepository persists activated accounts. The accounts collection
// carries a unique index on accountNumber, so a racing insert surfaces
// as a duplicate-key error rather than a silent duplicate.
type AccountRepository struct {
	collection *mongo.Collection
}

func NewAccountRepository(db *mongo.Client) *AccountRepository {
	return &AccountRepository{
		collection: config.GetCollection(db, "accounts"),
	}
}

// Insert writes the account, mapping a unique-index violation to
// utils.ErrAccountNumberTaken so the allocator can retry.
func (r *AccountRepository) Insert(ctx context.Context, account *models.Account) error {
	_, err := r.collection.InsertOne(ctx, account)
	if mongo.IsDuplicateKeyError(err) {
		return utils.ErrAccountNumberTaken
	}
	return err
}

// FindByCustomerID returns the account opened for a customer, or
// mongo.ErrNoDocuments when none exists yet.
func (r *AccountRepository) FindByCustomerID(ctx context.Context, customerID primitive.ObjectID) (*models.Account, error) {
	var account models.Account
	err := r.collection.FindOne(ctx, bson.M{"customerId": customerID}).Decode(&account)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
