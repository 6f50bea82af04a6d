// Package dbtest holds the conformance tests shared by all the
// db.Database implementations.
package dbtest

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/lfavole/voting/db"
	"github.com/lfavole/voting/db/prefixeddb"
)

// TestWriteTx checks the basic write transaction semantics: reads of
// buffered writes, commit visibility and discard.
func TestWriteTx(t *testing.T, database db.Database) {
	c := qt.New(t)

	wTx := database.WriteTx()
	defer wTx.Discard()

	if _, err := wTx.Get([]byte("a")); err != db.ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	err := wTx.Set([]byte("a"), []byte("b"))
	c.Assert(err, qt.IsNil)

	v, err := wTx.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("b"))

	// Not visible outside the tx before commit.
	_, err = database.Get([]byte("a"))
	c.Assert(err, qt.Equals, db.ErrKeyNotFound)

	err = wTx.Commit()
	c.Assert(err, qt.IsNil)

	v, err = database.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("b"))

	// Delete and commit.
	wTx = database.WriteTx()
	err = wTx.Delete([]byte("a"))
	c.Assert(err, qt.IsNil)
	err = wTx.Commit()
	c.Assert(err, qt.IsNil)

	_, err = database.Get([]byte("a"))
	c.Assert(err, qt.Equals, db.ErrKeyNotFound)

	// Discarded writes are dropped.
	wTx = database.WriteTx()
	err = wTx.Set([]byte("x"), []byte("y"))
	c.Assert(err, qt.IsNil)
	wTx.Discard()

	_, err = database.Get([]byte("x"))
	c.Assert(err, qt.Equals, db.ErrKeyNotFound)
}

// TestIterate checks prefix iteration ordering and early termination.
func TestIterate(t *testing.T, database db.Database) {
	c := qt.New(t)

	wTx := database.WriteTx()
	for _, kv := range [][2]string{
		{"p/one", "1"},
		{"p/two", "2"},
		{"p/three", "3"},
		{"q/other", "x"},
	} {
		err := wTx.Set([]byte(kv[0]), []byte(kv[1]))
		c.Assert(err, qt.IsNil)
	}
	err := wTx.Commit()
	c.Assert(err, qt.IsNil)

	var keys []string
	err = database.Iterate([]byte("p/"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	})
	c.Assert(err, qt.IsNil)
	// Ascending byte order.
	c.Assert(keys, qt.DeepEquals, []string{"p/one", "p/three", "p/two"})

	// Early termination.
	count := 0
	err = database.Iterate([]byte("p/"), func(k, v []byte) bool {
		count++
		return false
	})
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, 1)
}

// TestWriteTxApply checks merging two transactions before commit.
func TestWriteTxApply(t *testing.T, database db.Database) {
	c := qt.New(t)

	wTxA := database.WriteTx()
	err := wTxA.Set([]byte("a"), []byte("1"))
	c.Assert(err, qt.IsNil)

	wTxB := database.WriteTx()
	err = wTxB.Set([]byte("b"), []byte("2"))
	c.Assert(err, qt.IsNil)

	err = wTxA.Apply(wTxB)
	c.Assert(err, qt.IsNil)
	wTxB.Discard()

	err = wTxA.Commit()
	c.Assert(err, qt.IsNil)

	for _, kv := range [][2]string{{"a", "1"}, {"b", "2"}} {
		v, err := database.Get([]byte(kv[0]))
		c.Assert(err, qt.IsNil)
		c.Assert(v, qt.DeepEquals, []byte(kv[1]))
	}
}

// TestWriteTxApplyPrefixed checks that a prefixed transaction can be
// applied into a raw one and lands under the prefix.
func TestWriteTxApplyPrefixed(t *testing.T, database db.Database, prefixed db.Database) {
	c := qt.New(t)

	wTx := prefixed.WriteTx()
	err := wTx.Set([]byte("key"), []byte("value"))
	c.Assert(err, qt.IsNil)
	err = wTx.Commit()
	c.Assert(err, qt.IsNil)

	v, err := prefixed.Get([]byte("key"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("value"))

	// The raw database sees the prefixed key.
	found := false
	err = database.Iterate(nil, func(k, v []byte) bool {
		if string(v) == "value" {
			found = true
			return false
		}
		return true
	})
	c.Assert(err, qt.IsNil)
	c.Assert(found, qt.IsTrue)
}

// TestPrefixedIterate checks that prefixed readers strip the namespace
// from iterated keys.
func TestPrefixedIterate(t *testing.T, database db.Database) {
	c := qt.New(t)

	prefixed := prefixeddb.NewPrefixedDatabase(database, []byte("ns/"))
	wTx := prefixed.WriteTx()
	err := wTx.Set([]byte("k1"), []byte("v1"))
	c.Assert(err, qt.IsNil)
	err = wTx.Set([]byte("k2"), []byte("v2"))
	c.Assert(err, qt.IsNil)
	err = wTx.Commit()
	c.Assert(err, qt.IsNil)

	var keys []string
	err = prefixed.Iterate(nil, func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	})
	c.Assert(err, qt.IsNil)
	c.Assert(keys, qt.DeepEquals, []string{"k1", "k2"})
}
