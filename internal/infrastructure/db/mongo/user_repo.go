package mongo

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/baechuer/contacts-service/internal/domain"
)

type UserRepo struct {
	coll *mongo.Collection
}

func NewUserRepo(coll *mongo.Collection) *UserRepo {
	return &UserRepo{coll: coll}
}

// ---------- helpers ----------

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (domain.User, error) {
	var d userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return d.toDomain(), nil
}

// updateUnverified applies update to the identity matched by filter while it
// is unverified. When nothing matched it reports why: missing, already
// verified, or holding another verification token.
func (r *UserRepo) updateUnverified(ctx context.Context, filter, update bson.M) error {
	filter["verified"] = false
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	var state struct {
		Verified bool `bson:"verified"`
	}
	err = r.coll.FindOne(ctx, bson.M{"_id": filter["_id"]},
		options.FindOne().SetProjection(bson.M{"verified": 1})).Decode(&state)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrUserNotFound()
	case err != nil:
		return domain.ErrDBUnavailable(err)
	case state.Verified:
		return domain.ErrAlreadyVerified()
	default:
		return domain.ErrVerifyTokenNotFound()
	}
}

func (r *UserRepo) setField(ctx context.Context, id, field string, value any) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{field: value}})
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

// ---------- auth.UserRepo ----------

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) GetByVerificationToken(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.findOne(ctx, bson.M{"verification_token": token})
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = domain.NormalizeEmail(u.Email)
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if u.PasswordHash == "" {
		return domain.User{}, domain.ErrMissingField("password_hash")
	}

	if _, err := r.coll.InsertOne(ctx, fromDomainUser(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return u, nil
}

func (r *UserRepo) SetSessionToken(ctx context.Context, userID, token string) error {
	if token == "" {
		res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$unset": bson.M{"token": ""}})
		if err != nil {
			return domain.ErrDBUnavailable(err)
		}
		if res.MatchedCount == 0 {
			return domain.ErrUserNotFound()
		}
		return nil
	}
	return r.setField(ctx, userID, "token", token)
}

func (r *UserRepo) SetAvatarURL(ctx context.Context, userID, avatarURL string) error {
	return r.setField(ctx, userID, "avatar_url", avatarURL)
}

func (r *UserRepo) SetSubscription(ctx context.Context, userID string, sub domain.Subscription) (domain.User, error) {
	var d userDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"subscription": string(sub)}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return d.toDomain(), nil
}

func (r *UserRepo) SetVerificationToken(ctx context.Context, userID, token string) error {
	return r.updateUnverified(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"verification_token": token}})
}

func (r *UserRepo) MarkVerified(ctx context.Context, userID, token string) error {
	return r.updateUnverified(ctx, bson.M{"_id": userID, "verification_token": token}, bson.M{
		"$set":   bson.M{"verified": true},
		"$unset": bson.M{"verification_token": ""},
	})
}
