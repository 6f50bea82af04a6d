// Package mongodb implements the db.Database interface on top of a
// MongoDB collection. The server URL is taken from the MONGODB_URL
// environment variable and Options.Path selects the database name.
//
// The driver is experimental: commits are applied as a bulk write
// without multi-document transaction guarantees, which is enough for
// the voting storage because it serializes writers with its own lock.
package mongodb

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lfavole/voting/db"
)

const (
	collectionName = "kv"
	opTimeout      = 10 * time.Second
)

type document struct {
	ID    string `bson:"_id"` // hex-encoded key, preserves byte order
	Value []byte `bson:"value"`
}

// MongoDB implements db.Database over a MongoDB collection.
type MongoDB struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Ensure that MongoDB implements the db.Database interface.
var _ db.Database = (*MongoDB)(nil)

// New connects to the MongoDB server at $MONGODB_URL and uses the
// database named by opts.Path.
func New(opts db.Options) (*MongoDB, error) {
	url := os.Getenv("MONGODB_URL")
	if url == "" {
		return nil, fmt.Errorf("MONGODB_URL is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &MongoDB{
		client: client,
		coll:   client.Database(opts.Path).Collection(collectionName),
	}, nil
}

func (d *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return d.client.Disconnect(ctx)
}

func (d *MongoDB) Compact() error { return nil }

func (d *MongoDB) Get(key []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	var doc document
	err := d.coll.FindOne(ctx, bson.M{"_id": hex.EncodeToString(key)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, db.ErrKeyNotFound
		}
		return nil, err
	}
	return doc.Value, nil
}

func (d *MongoDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	// Hex encoding preserves the byte ordering of keys, so a range
	// query over _id yields keys in ascending byte order.
	filter := bson.M{}
	if len(prefix) > 0 {
		hexPrefix := hex.EncodeToString(prefix)
		rng := bson.M{"$gte": hexPrefix}
		if upper := prefixUpperBound(prefix); upper != nil {
			rng["$lt"] = hex.EncodeToString(upper)
		}
		filter["_id"] = rng
	}
	cur, err := d.coll.Find(ctx, filter, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return err
	}
	defer func() { _ = cur.Close(ctx) }()

	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return err
		}
		key, err := hex.DecodeString(doc.ID)
		if err != nil {
			return fmt.Errorf("malformed key %q: %w", doc.ID, err)
		}
		if !callback(key, doc.Value) {
			break
		}
	}
	return cur.Err()
}

func (d *MongoDB) WriteTx() db.WriteTx {
	return &WriteTx{
		db:     d,
		writes: make(map[string]*[]byte),
	}
}

func prefixUpperBound(prefix []byte) []byte {
	upper := bytes.Clone(prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] != 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

// WriteTx buffers writes in memory and flushes them with a bulk write
// on Commit.
type WriteTx struct {
	db     *MongoDB
	writes map[string]*[]byte // nil value means delete
	closed bool
}

// Ensure that WriteTx implements the db.WriteTx interface.
var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	if tx.closed {
		return nil, db.ErrTxClosed
	}
	if pending, ok := tx.writes[string(key)]; ok {
		if pending == nil {
			return nil, db.ErrKeyNotFound
		}
		return bytes.Clone(*pending), nil
	}
	return tx.db.Get(key)
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	merged := make(map[string][]byte)
	if err := tx.db.Iterate(prefix, func(key, value []byte) bool {
		merged[string(key)] = bytes.Clone(value)
		return true
	}); err != nil {
		return err
	}
	for k, v := range tx.writes {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = bytes.Clone(*v)
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !callback([]byte(k), merged[k]) {
			break
		}
	}
	return nil
}

func (tx *WriteTx) Set(key, value []byte) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	valCopy := bytes.Clone(value)
	tx.writes[string(key)] = &valCopy
	return nil
}

func (tx *WriteTx) Delete(key []byte) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	tx.writes[string(key)] = nil
	return nil
}

func (tx *WriteTx) Apply(other db.WriteTx) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	otherTx, ok := other.(*WriteTx)
	if !ok {
		return fmt.Errorf("can only apply a mongodb.WriteTx")
	}
	for k, v := range otherTx.writes {
		if v == nil {
			tx.writes[k] = nil
			continue
		}
		valCopy := bytes.Clone(*v)
		tx.writes[k] = &valCopy
	}
	return nil
}

func (tx *WriteTx) Commit() error {
	if tx.closed {
		return db.ErrTxClosed
	}
	tx.closed = true
	if len(tx.writes) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(tx.writes))
	for k, v := range tx.writes {
		id := hex.EncodeToString([]byte(k))
		if v == nil {
			models = append(models, mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": id}))
			continue
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": id}).
			SetReplacement(document{ID: id, Value: *v}).
			SetUpsert(true))
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_, err := tx.db.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}

func (tx *WriteTx) Discard() {
	tx.closed = true
	tx.writes = map[string]*[]byte{}
}
