package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/member-portal/internal/core/domain"
)

const collectionUsers = "users"

// UserRepository is the credential store backed by the users collection.
// Email uniqueness is enforced by a unique index, see EnsureIndexes.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type userDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Email          string             `bson:"email"`
	Password       string             `bson:"password,omitempty"`
	Name           string             `bson:"name"`
	Photo          string             `bson:"photo"`
	FirstTimeLogin bool               `bson:"firstTimeLogin"`
	IsAdmin        bool               `bson:"isAdmin"`
	CreatedAt      time.Time          `bson:"createdAt"`
	PaymentType    string             `bson:"paymentType"`
}

// withoutPassword is the default projection for reads.
var withoutPassword = bson.D{{Key: "password", Value: 0}}

func toDocument(u *domain.User) userDocument {
	return userDocument{
		Email:          u.Email,
		Password:       u.PasswordHash,
		Name:           u.Name,
		Photo:          u.Photo,
		FirstTimeLogin: u.FirstTimeLogin,
		IsAdmin:        u.IsAdmin,
		CreatedAt:      u.CreatedAt,
		PaymentType:    string(u.Tier),
	}
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:             d.ID.Hex(),
		Email:          d.Email,
		PasswordHash:   d.Password,
		Name:           d.Name,
		Photo:          d.Photo,
		FirstTimeLogin: d.FirstTimeLogin,
		IsAdmin:        d.IsAdmin,
		CreatedAt:      d.CreatedAt.UTC(),
		Tier:           domain.Tier(d.PaymentType),
	}
}

// Create inserts a new user. A second insert for the same email fails with
// domain.ErrDuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toDocument(u)
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = id
	}
	created := doc.toDomain()
	created.PasswordHash = ""
	return created, nil
}

// FindByEmail returns the user without the password hash.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, email, options.FindOne().SetProjection(withoutPassword))
}

// FindCredentials returns the user including the password hash. Only the
// login and password-change paths should call it.
func (r *UserRepository) FindCredentials(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, email, options.FindOne())
}

func (r *UserRepository) findOne(ctx context.Context, email string, opts *options.FindOneOptions) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDocument
	err := r.col.FindOne(ctx, bson.M{"email": email}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

// Update applies the non-nil fields of patch to the user with email.
func (r *UserRepository) Update(ctx context.Context, email string, patch domain.UserPatch) error {
	set := setFromPatch(patch)
	if len(set) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func setFromPatch(p domain.UserPatch) bson.M {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Photo != nil {
		set["photo"] = *p.Photo
	}
	if p.FirstTimeLogin != nil {
		set["firstTimeLogin"] = *p.FirstTimeLogin
	}
	if p.Tier != nil {
		set["paymentType"] = string(*p.Tier)
	}
	if p.PasswordHash != nil {
		set["password"] = *p.PasswordHash
	}
	return set
}

// EnsureIndexes creates the unique email index on the users collection.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	return err
}
