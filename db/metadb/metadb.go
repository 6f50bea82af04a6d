// Package metadb constructs a db.Database from a backend type name.
package metadb

import (
	"fmt"

	"github.com/lfavole/voting/db"
	"github.com/lfavole/voting/db/inmemory"
	"github.com/lfavole/voting/db/mongodb"
	"github.com/lfavole/voting/db/pebbledb"
)

// New returns a db.Database of the given type (db.TypePebble,
// db.TypeInMemory or db.TypeMongo) rooted at path.
func New(typ, path string) (db.Database, error) {
	switch typ {
	case db.TypePebble:
		return pebbledb.New(db.Options{Path: path})
	case db.TypeInMemory:
		return inmemory.New(db.Options{Path: path})
	case db.TypeMongo:
		return mongodb.New(db.Options{Path: path})
	default:
		return nil, fmt.Errorf("unknown database type %q", typ)
	}
}
