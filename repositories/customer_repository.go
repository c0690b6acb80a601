package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ncbadigital/onboarding_backend/config"
	"github.com/ncbadigital/onboarding_backend/models"
	"github.com/ncbadigital/onboarding_backend/utils"
)

// ErrNotPending is returned when a status transition expected a PENDING
// customer but found another status, either because the customer was
// rejected or flagged, or because a racing verify call won the
// transition first. A caller observing it must not create an account.
var ErrNotPending = errors.New("customer is not pending verification")

// ConflictError reports a uniqueness violation on customer creation.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("a customer with this %s already exists", e.Field)
}

// CustomerRepository owns all persisted mutations of customers, their
// documents and the verification transaction.
type CustomerRepository struct {
	client    *mongo.Client
	customers *mongo.Collection
	documents *mongo.Collection
}

func NewCustomerRepository(db *mongo.Client) *CustomerRepository {
	return &CustomerRepository{
		client:    db,
		customers: config.GetCollection(db, "customers"),
		documents: config.GetCollection(db, "documents"),
	}
}

// CreateWithDocuments creates the three KYC document records and the
// customer referencing them in one transaction: either all four records
// exist afterwards or none do. A uniqueness violation on email or
// national ID rolls everything back and surfaces as *ConflictError.
func (r *CustomerRepository) CreateWithDocuments(ctx context.Context, customer *models.Customer, profileURL, idFrontURL, idBackURL string) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		now := time.Now()
		docs := make([]primitive.ObjectID, 0, 3)
		for _, url := range []string{profileURL, idFrontURL, idBackURL} {
			doc := models.Document{
				ID:        primitive.NewObjectID(),
				URL:       url,
				CreatedAt: now,
			}
			if _, err := r.documents.InsertOne(sc, doc); err != nil {
				return nil, err
			}
			docs = append(docs, doc.ID)
		}

		customer.ProfileImageID = docs[0]
		customer.IDFrontImageID = docs[1]
		customer.IDBackImageID = docs[2]
		customer.CreatedAt = now
		customer.UpdatedAt = now

		if _, err := r.customers.InsertOne(sc, customer); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &ConflictError{Field: duplicateField(err)}
		}
		return err
	}
	return nil
}

// duplicateField names the conflicting unique index from a duplicate-key
// error so the caller can report which field collided.
func duplicateField(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "nationalId"):
		return "national ID"
	case strings.Contains(msg, "email"):
		return "email"
	}
	return "email or national ID"
}

// FindByID loads a customer, returning mongo.ErrNoDocuments when absent.
func (r *CustomerRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.customers.FindOne(ctx, bson.M{"_id": id}).Decode(&customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// SetOTP stores a freshly issued OTP hash and expiry and resets the
// attempt counter, starting a new OTP cycle.
func (r *CustomerRepository) SetOTP(ctx context.Context, id primitive.ObjectID, hash string, expiresAt time.Time) error {
	_, err := r.customers.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"emailOtpHash":     hash,
			"emailOtpExpiry":   expiresAt,
			"emailOtpAttempts": 0,
			"updatedAt":        time.Now(),
		},
	})
	return err
}

// IncrementOTPAttempts bumps the failed-verification counter by one.
func (r *CustomerRepository) IncrementOTPAttempts(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.customers.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"emailOtpAttempts": 1},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	return err
}

// CompleteVerification atomically promotes a PENDING customer to
// VERIFIED, clears the OTP state and opens the account, all in one
// transaction. The status filter is the compare-and-swap guard: of two
// racing verify calls only one matches the PENDING document, the other
// gets ErrNotPending and no second account is created.
func (r *CustomerRepository) CompleteVerification(ctx context.Context, id primitive.ObjectID, accounts utils.AccountStore) (*models.Account, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.customers.UpdateOne(sc,
			bson.M{"_id": id, "status": models.StatusPending},
			bson.M{
				"$set": bson.M{
					"status":           models.StatusVerified,
					"emailVerified":    true,
					"emailOtpAttempts": 0,
					"updatedAt":        time.Now(),
				},
				"$unset": bson.M{
					"emailOtpHash":   "",
					"emailOtpExpiry": "",
				},
			},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, ErrNotPending
		}

		return utils.AllocateAccount(sc, accounts, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Account), nil
}

// UpdateStatus applies an administrative status edit (REJECTED, FLAGGED,
// back to PENDING) guarded by the state machine via a filter on the
// current status.
func (r *CustomerRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.CustomerStatus, flagReason string) error {
	update := bson.M{
		"$set": bson.M{
			"status":    to,
			"updatedAt": time.Now(),
		},
	}
	if to == models.StatusFlagged {
		update["$set"].(bson.M)["flagReason"] = flagReason
	} else {
		update["$unset"] = bson.M{"flagReason": ""}
	}

	res, err := r.customers.UpdateOne(ctx, bson.M{"_id": id, "status": from}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// List returns customers newest first with basic pagination.
func (r *CustomerRepository) List(ctx context.Context, page, limit int64) ([]models.Customer, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	cursor, err := r.customers.Find(ctx, bson.M{}, listOptions(page, limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	customers := []models.Customer{}
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func listOptions(page, limit int64) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
}
