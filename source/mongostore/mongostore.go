// Package mongostore builds bulk fetches over MongoDB collections.
package mongostore

import (
	"context"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InFilter matches documents whose field is one of keys.
func InFilter[K any](field string, keys []K) bson.M {
	return bson.M{field: bson.M{"$in": keys}}
}

// In returns a fetch reading every document whose field is one of the batch keys,
// e.g. In[primitive.ObjectID, User](users, "_id"). Pair it with batchload.Keyed
// or batchload.Grouped.
func In[K any, R any](coll *mongo.Collection, field string, opts ...*options.FindOptions) func(ctx context.Context, keys []K) ([]R, error) {
	return func(ctx context.Context, keys []K) ([]R, error) {
		if len(keys) == 0 {
			return nil, nil
		}
		return find[R](ctx, coll, InFilter(field, keys), opts...)
	}
}

// SearchFilter matches documents where any of fields contains term,
// case-insensitively. term is matched literally.
// A blank term matches nothing.
func SearchFilter(fields []string, term string) bson.M {
	term = strings.TrimSpace(term)
	if term == "" || len(fields) == 0 {
		return bson.M{"_id": bson.M{"$exists": false}}
	}
	pattern := regexp.QuoteMeta(term)
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: bson.M{"$regex": pattern, "$options": "i"}})
	}
	return bson.M{"$or": or}
}

// Search returns a per-term search over fields, capped at limit documents (0 = no cap).
func Search[R any](coll *mongo.Collection, fields []string, limit int64) func(ctx context.Context, term string) ([]R, error) {
	return func(ctx context.Context, term string) ([]R, error) {
		opts := options.Find()
		if limit > 0 {
			opts.SetLimit(limit)
		}
		return find[R](ctx, coll, SearchFilter(fields, term), opts)
	}
}

func find[R any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts ...*options.FindOptions) ([]R, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var rows []R
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
