package mongodb

import (
	"os"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/lfavole/voting/db"
	"github.com/lfavole/voting/db/internal/dbtest"
	"github.com/lfavole/voting/db/prefixeddb"
	"github.com/lfavole/voting/util"
)

func skipWithoutMongo(t *testing.T) {
	t.Helper()
	if os.Getenv("MONGODB_URL") == "" {
		t.Skip("MONGODB_URL is not set")
	}
}

func TestWriteTx(t *testing.T) {
	skipWithoutMongo(t)
	database, err := New(db.Options{Path: util.RandomHex(16)})
	qt.Assert(t, err, qt.IsNil)
	defer func() { _ = database.Close() }()

	dbtest.TestWriteTx(t, database)
}

func TestIterate(t *testing.T) {
	skipWithoutMongo(t)
	database, err := New(db.Options{Path: util.RandomHex(16)})
	qt.Assert(t, err, qt.IsNil)
	defer func() { _ = database.Close() }()

	dbtest.TestIterate(t, database)
}

func TestWriteTxApply(t *testing.T) {
	skipWithoutMongo(t)
	database, err := New(db.Options{Path: util.RandomHex(16)})
	qt.Assert(t, err, qt.IsNil)
	defer func() { _ = database.Close() }()

	dbtest.TestWriteTxApply(t, database)
}

func TestWriteTxApplyPrefixed(t *testing.T) {
	skipWithoutMongo(t)
	database, err := New(db.Options{Path: util.RandomHex(16)})
	qt.Assert(t, err, qt.IsNil)
	defer func() { _ = database.Close() }()

	prefix := []byte("one")
	dbWithPrefix := prefixeddb.NewPrefixedDatabase(database, prefix)

	dbtest.TestWriteTxApplyPrefixed(t, database, dbWithPrefix)
}
