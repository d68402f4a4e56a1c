package store

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
)

// MongoGateway implements Gateway on top of MongoDB. Subcollection paths are
// flattened: a document at "users/u1/cart/c1" lives in the "cart" collection
// with its parent path kept in a scope field, so path semantics survive the
// flat collection namespace.
type MongoGateway struct {
	client *mongo.Client
	db     *mongo.Database
}

const (
	idField    = "_id"
	scopeField = "_scope"
)

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// NewMongoGateway creates a gateway over the named database.
func NewMongoGateway(client *mongo.Client, database string) *MongoGateway {
	return &MongoGateway{
		client: client,
		db:     client.Database(database),
	}
}

func (g *MongoGateway) Get(ctx context.Context, path, id string) (Document, error) {
	coll, scope := g.resolve(path)

	var raw bson.M
	err := coll.FindOne(ctx, g.keyFilter(scope, id)).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, translateMongoError(err)
	}
	return fromBSON(raw), nil
}

func (g *MongoGateway) Set(ctx context.Context, path, id string, doc Document) error {
	coll, scope := g.resolve(path)

	stored := toBSON(doc)
	stored[idField] = id
	if scope != "" {
		stored[scopeField] = scope
	}
	_, err := coll.ReplaceOne(ctx, g.keyFilter(scope, id), stored, options.Replace().SetUpsert(true))
	return translateMongoError(err)
}

func (g *MongoGateway) Add(ctx context.Context, path string, doc Document) (string, error) {
	coll, scope := g.resolve(path)

	id := primitive.NewObjectID().Hex()
	stored := toBSON(doc)
	stored[idField] = id
	if scope != "" {
		stored[scopeField] = scope
	}
	if _, err := coll.InsertOne(ctx, stored); err != nil {
		return "", translateMongoError(err)
	}
	return id, nil
}

func (g *MongoGateway) Update(ctx context.Context, path, id string, fields Document) error {
	coll, scope := g.resolve(path)

	set := bson.M{}
	unset := bson.M{}
	for k, v := range fields {
		if v == nil {
			unset[k] = ""
			continue
		}
		set[k] = v
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(update) == 0 {
		return nil
	}

	res, err := coll.UpdateOne(ctx, g.keyFilter(scope, id), update)
	if err != nil {
		return translateMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *MongoGateway) Delete(ctx context.Context, path, id string) error {
	coll, scope := g.resolve(path)
	_, err := coll.DeleteOne(ctx, g.keyFilter(scope, id))
	return translateMongoError(err)
}

func (g *MongoGateway) Query(ctx context.Context, path string, filters []Filter) ([]Document, error) {
	coll, scope := g.resolve(path)

	filter := bson.M{}
	if scope != "" {
		filter[scopeField] = scope
	}
	for _, f := range filters {
		filter[f.Field] = f.Value
	}

	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, translateMongoError(err)
	}
	defer cursor.Close(ctx)

	var result []Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, translateMongoError(err)
		}
		result = append(result, fromBSON(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, translateMongoError(err)
	}
	return result, nil
}

func (g *MongoGateway) RunTransaction(ctx context.Context, path, id string, fn func(doc Document) (Document, error)) error {
	session, err := g.client.StartSession()
	if err != nil {
		return translateMongoError(err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		coll, scope := g.resolve(path)

		var raw bson.M
		findErr := coll.FindOne(sc, g.keyFilter(scope, id)).Decode(&raw)
		if findErr != nil && findErr != mongo.ErrNoDocuments {
			return nil, findErr
		}

		updated, fnErr := fn(fromBSON(raw))
		if fnErr != nil {
			return nil, fnErr
		}

		set := toBSON(updated)
		if scope != "" {
			set[scopeField] = scope
		}
		_, updErr := coll.UpdateOne(sc, g.keyFilter(scope, id), bson.M{"$set": set}, options.Update().SetUpsert(true))
		return nil, updErr
	})
	return translateMongoError(err)
}

// resolve splits a path into the backing collection (its last segment) and
// the scope prefix identifying the parent document.
func (g *MongoGateway) resolve(path string) (*mongo.Collection, string) {
	segments := strings.Split(path, "/")
	name := segments[len(segments)-1]
	scope := ""
	if len(segments) > 1 {
		scope = strings.Join(segments[:len(segments)-1], "/")
	}
	return g.db.Collection(name), scope
}

func (g *MongoGateway) keyFilter(scope, id string) bson.M {
	filter := bson.M{idField: id}
	if scope != "" {
		filter[scopeField] = scope
	}
	return filter
}

func toBSON(doc Document) bson.M {
	out := bson.M{}
	for k, v := range doc {
		if nested, ok := v.(Document); ok {
			out[k] = toBSON(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func fromBSON(raw bson.M) Document {
	doc := Document{}
	for k, v := range raw {
		if k == idField || k == scopeField {
			continue
		}
		switch val := v.(type) {
		case bson.M:
			doc[k] = fromBSON(val)
		case primitive.A:
			arr := make([]any, len(val))
			for i, e := range val {
				if nested, ok := e.(bson.M); ok {
					arr[i] = fromBSON(nested)
				} else {
					arr[i] = e
				}
			}
			doc[k] = arr
		case primitive.DateTime:
			doc[k] = val.Time()
		default:
			doc[k] = v
		}
	}
	return doc
}

func translateMongoError(err error) error {
	if err == nil {
		return nil
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 13 {
		// Code 13 is "Unauthorized".
		return fmt.Errorf("%w: %s", ErrPermissionDenied, cmdErr.Message)
	}
	return err
}
