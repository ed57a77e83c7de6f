package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"winshirt-sync/internal/model"
)

const countersCollection = "counters"

// MongoRemote implements RemoteRepository with one MongoDB collection per table.
// Documents use an int64 _id drawn from a per-table counter.
type MongoRemote struct {
	client *mongo.Client
	db     *mongo.Database
	log    zerolog.Logger
}

// NewMongoRemote connects to MongoDB and prepares the collections.
func NewMongoRemote(uri, database string, logger zerolog.Logger) (*MongoRemote, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)

	// Child lookups filter on the parent key.
	for child, fk := range map[string]string{
		model.TableLotteryParticipants: "lottery_id",
		model.TableLotteryWinners:      "lottery_id",
		model.TableOrderItems:          "order_id",
	} {
		idx := mongo.IndexModel{Keys: bson.D{{Key: fk, Value: 1}}}
		if _, err := db.Collection(child).Indexes().CreateOne(ctx, idx); err != nil {
			logger.Warn().Err(err).Str("collection", child).Msg("failed to create index")
		}
	}

	logger.Info().Str("database", database).Msg("mongodb remote connected")
	return &MongoRemote{client: client, db: db, log: logger}, nil
}

func (r *MongoRemote) nextID(ctx context.Context, table string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": table},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate id for %s: %w", table, err)
	}
	return counter.Seq, nil
}

func toFilter(filters []Filter) bson.D {
	d := bson.D{}
	for _, f := range filters {
		key := f.Column
		if key == "id" {
			key = "_id"
		}
		d = append(d, bson.E{Key: key, Value: normalizeForBSON(f.Value)})
	}
	return d
}

func toDocument(id int64, row Row) bson.M {
	doc := bson.M{"_id": id}
	for k, v := range withoutID(row) {
		doc[k] = normalizeForBSON(v)
	}
	return doc
}

func toSet(row Row) bson.M {
	set := bson.M{}
	for k, v := range withoutID(row) {
		set[k] = normalizeForBSON(v)
	}
	return set
}

// normalizeForBSON converts decoded JSON values into BSON-friendly values.
func normalizeForBSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		return scalar(t)
	case map[string]any:
		m := bson.M{}
		for k, val := range t {
			m[k] = normalizeForBSON(val)
		}
		return m
	case []any:
		a := make(bson.A, len(t))
		for i, val := range t {
			a[i] = normalizeForBSON(val)
		}
		return a
	default:
		return v
	}
}

// fromBSON converts decoded BSON values back into plain JSON-like values.
func fromBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = fromBSON(val)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = fromBSON(val)
		}
		return m
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = fromBSON(e.Value)
		}
		return m
	case bson.A:
		a := make([]any, len(t))
		for i, val := range t {
			a[i] = fromBSON(val)
		}
		return a
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339Nano)
	case int32:
		return int64(t)
	default:
		return v
	}
}

func docToRow(doc bson.M) Row {
	row := fromBSON(doc).(map[string]any)
	if id, ok := row["_id"]; ok {
		row["id"] = id
		delete(row, "_id")
	}
	return row
}

// Probe performs a minimal read against table.
func (r *MongoRemote) Probe(ctx context.Context, table string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	err := r.db.Collection(table).FindOne(ctx, bson.D{}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to probe %s: %w", table, err)
	}
	return nil
}

// Select returns the documents matching every filter, ordered by _id.
func (r *MongoRemote) Select(ctx context.Context, table string, filters ...Filter) ([]Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if err := checkFilters(filters); err != nil {
		return nil, err
	}

	cursor, err := r.db.Collection(table).Find(ctx, toFilter(filters), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", table, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", table, err)
	}

	rows := make([]Row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, docToRow(doc))
	}
	return rows, nil
}

// Insert stores a new document with the next counter id.
func (r *MongoRemote) Insert(ctx context.Context, table string, row Row) (Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	id, err := r.nextID(ctx, table)
	if err != nil {
		return nil, err
	}
	doc := toDocument(id, row)
	if _, err := r.db.Collection(table).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return docToRow(doc), nil
}

// Update $sets patch on the document with the given id.
func (r *MongoRemote) Update(ctx context.Context, table string, id int64, patch Row) (Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if len(withoutID(patch)) == 0 {
		var doc bson.M
		err := r.db.Collection(table).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s %d: %w", table, id, err)
		}
		return docToRow(doc), nil
	}
	return r.findAndUpdate(ctx, table, id, bson.M{"$set": toSet(patch)})
}

func (r *MongoRemote) findAndUpdate(ctx context.Context, table string, id int64, update bson.M) (Row, error) {
	var doc bson.M
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.db.Collection(table).FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update %s %d: %w", table, id, err)
	}
	return docToRow(doc), nil
}

// Upsert inserts row or merges it into the document matching conflictColumn.
func (r *MongoRemote) Upsert(ctx context.Context, table string, row Row, conflictColumn string) (Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if err := checkColumn(conflictColumn); err != nil {
		return nil, err
	}

	if conflictColumn == "id" {
		id, ok := RowID(row)
		if !ok {
			return r.Insert(ctx, table, row)
		}
		var doc bson.M
		opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
		err := r.db.Collection(table).FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": toSet(row)}, opts).Decode(&doc)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert %s %d: %w", table, id, err)
		}
		// Keep the counter ahead of explicitly restored ids.
		_, err = r.db.Collection(countersCollection).UpdateOne(ctx,
			bson.M{"_id": table}, bson.M{"$max": bson.M{"seq": id}}, options.Update().SetUpsert(true))
		if err != nil {
			r.log.Warn().Err(err).Str("table", table).Msg("failed to advance id counter")
		}
		return docToRow(doc), nil
	}

	value, ok := row[conflictColumn]
	if !ok {
		return r.Insert(ctx, table, row)
	}

	var existing bson.M
	err := r.db.Collection(table).FindOne(ctx, bson.M{conflictColumn: normalizeForBSON(value)}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return r.Insert(ctx, table, row)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s by %s: %w", table, conflictColumn, err)
	}
	id, _ := toInt64(existing["_id"])
	return r.Update(ctx, table, id, row)
}

// Delete removes the documents matching every filter.
func (r *MongoRemote) Delete(ctx context.Context, table string, filters ...Filter) (int64, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, ErrNoFilter
	}
	if err := checkFilters(filters); err != nil {
		return 0, err
	}
	result, err := r.db.Collection(table).DeleteMany(ctx, toFilter(filters))
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return result.DeletedCount, nil
}

// DeleteAll removes every document of table.
func (r *MongoRemote) DeleteAll(ctx context.Context, table string) (int64, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}
	result, err := r.db.Collection(table).DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", table, err)
	}
	return result.DeletedCount, nil
}

// Increment applies $inc to column.
func (r *MongoRemote) Increment(ctx context.Context, table string, id int64, column string, delta int64) (Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if err := checkColumn(column); err != nil {
		return nil, err
	}
	return r.findAndUpdate(ctx, table, id, bson.M{"$inc": bson.M{column: delta}})
}

// Stats returns document counts per collection.
func (r *MongoRemote) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"backend": "mongodb", "status": "connected"}
	counts := make(map[string]int64, len(model.KnownTables))
	for _, table := range model.KnownTables {
		n, err := r.db.Collection(table).CountDocuments(ctx, bson.M{})
		if err != nil {
			return stats, err
		}
		counts[table] = n
	}
	stats["rows"] = counts
	return stats, nil
}

// Close disconnects the client.
func (r *MongoRemote) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

var _ RemoteRepository = (*MongoRemote)(nil)
