package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/baechuer/contacts-service/internal/application/contacts"
	"github.com/baechuer/contacts-service/internal/domain"
)

type ContactRepo struct {
	coll *mongo.Collection
}

func NewContactRepo(coll *mongo.Collection) *ContactRepo {
	return &ContactRepo{coll: coll}
}

func ownerFilter(ownerID, id string) bson.M {
	return bson.M{"_id": id, "owner": ownerID}
}

func listFilter(ownerID string, f contacts.ListFilter) bson.M {
	filter := bson.M{"owner": ownerID}
	if f.Favorite != nil {
		filter["favorite"] = *f.Favorite
	}
	return filter
}

func decodeContact(res *mongo.SingleResult) (domain.Contact, error) {
	var d contactDoc
	if err := res.Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Contact{}, domain.ErrContactNotFound()
		}
		return domain.Contact{}, domain.ErrDBUnavailable(err)
	}
	return d.toDomain(), nil
}

func (r *ContactRepo) List(ctx context.Context, ownerID string, f contacts.ListFilter) ([]domain.Contact, int, error) {
	filter := listFilter(ownerID, f)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(f.Skip())).
		SetLimit(int64(f.Limit)))
	if err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}
	defer cur.Close(ctx)

	var docs []contactDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}

	out := make([]domain.Contact, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, int(total), nil
}

func (r *ContactRepo) Get(ctx context.Context, ownerID, id string) (domain.Contact, error) {
	return decodeContact(r.coll.FindOne(ctx, ownerFilter(ownerID, id)))
}

func (r *ContactRepo) Create(ctx context.Context, c domain.Contact) (domain.Contact, error) {
	if _, err := r.coll.InsertOne(ctx, fromDomainContact(c)); err != nil {
		return domain.Contact{}, domain.ErrDBUnavailable(err)
	}
	return c, nil
}

func (r *ContactRepo) findAndSet(ctx context.Context, ownerID, id string, set bson.M) (domain.Contact, error) {
	return decodeContact(r.coll.FindOneAndUpdate(ctx,
		ownerFilter(ownerID, id),
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	))
}

func (r *ContactRepo) Update(ctx context.Context, ownerID, id string, p domain.ContactPatch, now time.Time) (domain.Contact, error) {
	set := bson.M{"updated_at": now}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.Phone != nil {
		set["phone"] = *p.Phone
	}
	return r.findAndSet(ctx, ownerID, id, set)
}

func (r *ContactRepo) SetFavorite(ctx context.Context, ownerID, id string, favorite bool, now time.Time) (domain.Contact, error) {
	return r.findAndSet(ctx, ownerID, id, bson.M{"favorite": favorite, "updated_at": now})
}

func (r *ContactRepo) Delete(ctx context.Context, ownerID, id string) (domain.Contact, error) {
	return decodeContact(r.coll.FindOneAndDelete(ctx, ownerFilter(ownerID, id)))
}
