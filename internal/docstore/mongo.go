package docstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoStore maps the contract onto a real document database: collections per
// docstore collection, _id as the document key, field merges as update
// operators and Transact as a session transaction.
type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo connects to the given deployment and database.
func NewMongo(ctx context.Context, uri, database string) (Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping %s: %w", uri, err)
	}
	return &mongoStore{client: client, db: client.Database(database)}, nil
}

func (s *mongoStore) Get(ctx context.Context, key Key) (Document, error) {
	var raw bson.M
	err := s.db.Collection(key.Collection).FindOne(ctx, bson.M{"_id": key.ID}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(raw), nil
}

func (s *mongoStore) MultiGet(ctx context.Context, keys []Key) (map[Key]Document, error) {
	return s.multiGet(ctx, keys)
}

func (s *mongoStore) multiGet(ctx context.Context, keys []Key) (map[Key]Document, error) {
	out := make(map[Key]Document, len(keys))
	byCollection := make(map[string][]string)
	for _, key := range keys {
		byCollection[key.Collection] = append(byCollection[key.Collection], key.ID)
	}
	for collection, ids := range byCollection {
		cursor, err := s.db.Collection(collection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return nil, err
		}
		var raws []bson.M
		if err := cursor.All(ctx, &raws); err != nil {
			return nil, err
		}
		for _, raw := range raws {
			id, _ := raw["_id"].(string)
			out[Key{Collection: collection, ID: id}] = fromBSON(raw)
		}
	}
	return out, nil
}

type mongoTx struct {
	ctx      context.Context
	store    *mongoStore
	writes   []WriteOp
	writeSet bool
}

func (t *mongoTx) MultiGet(keys []Key) (map[Key]Document, error) {
	if t.writeSet {
		return nil, ErrReadAfterWrite
	}
	return t.store.multiGet(t.ctx, keys)
}

func (t *mongoTx) Write(op WriteOp) {
	t.writeSet = true
	t.writes = append(t.writes, op)
}

func (s *mongoStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		tx := &mongoTx{ctx: sc, store: s}
		if err := fn(tx); err != nil {
			return nil, err
		}
		for _, op := range tx.writes {
			if err := s.applyWrite(sc, op); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return mapMongoErr(err)
}

func (s *mongoStore) BatchWrite(ctx context.Context, ops []WriteOp) error {
	for _, op := range ops {
		if err := s.applyWrite(ctx, op); err != nil {
			return mapMongoErr(err)
		}
	}
	return nil
}

func (s *mongoStore) applyWrite(ctx context.Context, op WriteOp) error {
	coll := s.db.Collection(op.Key.Collection)
	filter := bson.M{"_id": op.Key.ID}

	switch {
	case op.Remove:
		_, err := coll.DeleteOne(ctx, filter)
		return err
	case op.Replace != nil:
		doc := bson.M{"_id": op.Key.ID}
		for field, value := range op.Replace {
			doc[field] = value
		}
		_, err := coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
		return err
	default:
		update := bson.M{}
		stage := func(operator, field string, value any) {
			section, ok := update[operator].(bson.M)
			if !ok {
				section = bson.M{}
				update[operator] = section
			}
			section[field] = value
		}
		for field, fieldOp := range op.Fields {
			switch fieldOp.kind {
			case opInc:
				stage("$inc", field, fieldOp.delta)
			case opSet:
				stage("$set", field, fieldOp.value)
			case opSetOnInsert:
				stage("$setOnInsert", field, fieldOp.value)
			case opMax:
				stage("$max", field, fieldOp.delta)
			}
		}
		_, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		return err
	}
}

func (s *mongoStore) Query(ctx context.Context, q Query) (*Page, error) {
	if q.Descending && q.Cursor != "" {
		return nil, ErrDescendingCursor
	}
	filter := bson.M{}
	for _, f := range q.Filters {
		switch f.Op {
		case OpEqual:
			filter[f.Field] = f.Value
		case OpGreaterEqual:
			filter[f.Field] = mergeRange(filter[f.Field], "$gte", f.Value)
		case OpLessEqual:
			filter[f.Field] = mergeRange(filter[f.Field], "$lte", f.Value)
		default:
			return nil, fmt.Errorf("docstore: unsupported filter op %q", f.Op)
		}
	}

	conditions := []bson.M{filter}
	if q.Cursor != "" {
		cursorValue, cursorID, err := decodeCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, bson.M{"$or": []bson.M{
			{q.OrderBy: bson.M{"$gt": cursorValue}},
			{q.OrderBy: cursorValue, "_id": bson.M{"$gt": cursorID}},
		}})
	}

	direction := 1
	if q.Descending {
		direction = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: q.OrderBy, Value: direction}, {Key: "_id", Value: direction}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit + 1))
	}

	cursor, err := s.db.Collection(q.Collection).Find(ctx, bson.M{"$and": conditions}, opts)
	if err != nil {
		return nil, err
	}
	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, err
	}

	page := &Page{}
	more := q.Limit > 0 && len(raws) > q.Limit
	if more {
		raws = raws[:q.Limit]
	}
	for _, raw := range raws {
		id, _ := raw["_id"].(string)
		page.Keys = append(page.Keys, Key{Collection: q.Collection, ID: id})
		page.Docs = append(page.Docs, fromBSON(raw))
	}
	if more && len(page.Docs) > 0 && !q.Descending {
		last := page.Docs[len(page.Docs)-1]
		value, _ := last[q.OrderBy].(string)
		page.NextCursor = encodeCursor(value, page.Keys[len(page.Keys)-1].ID)
	}
	return page, nil
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func mergeRange(existing any, operator string, value any) bson.M {
	rangeDoc, ok := existing.(bson.M)
	if !ok {
		rangeDoc = bson.M{}
	}
	rangeDoc[operator] = value
	return rangeDoc
}

// fromBSON normalizes driver types (bson.M, bson.A, int32) into the plain
// map shape the rest of the code decodes.
func fromBSON(raw bson.M) Document {
	doc := make(Document, len(raw))
	for field, value := range raw {
		if field == "_id" {
			continue
		}
		doc[field] = normalizeBSON(value)
	}
	return doc
}

func normalizeBSON(value any) any {
	switch v := value.(type) {
	case bson.M:
		nested := make(map[string]any, len(v))
		for k, item := range v {
			nested[k] = normalizeBSON(item)
		}
		return nested
	case bson.A:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = normalizeBSON(item)
		}
		return items
	case int32:
		return int64(v)
	default:
		return v
	}
}

// mapMongoErr translates transient transaction errors into the conflict error
// the engine retries on.
func mapMongoErr(err error) error {
	if err == nil {
		return nil
	}
	type labeled interface{ HasErrorLabel(string) bool }
	if le, ok := err.(labeled); ok && le.HasErrorLabel("TransientTransactionError") {
		return fmt.Errorf("%w: %s", ErrConflict, err.Error())
	}
	return err
}
