package storage

import (
	"encoding/hex"
	"unicode/utf8"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

type Entry struct {
	Key   string
	Value string
	Size  int
}

// Browse lists up to limit entries under prefix (all when prefix is empty).
// Values longer than 100 bytes, or not valid text, are shown as truncated hex.
func Browse(db *leveldb.DB, prefix string, limit int) ([]Entry, error) {
	var rng *util.Range
	if prefix != "" {
		rng = util.BytesPrefix([]byte(prefix))
	}
	iter := db.NewIterator(rng, nil)
	defer iter.Release()

	var out []Entry
	for iter.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		v := iter.Value()
		e := Entry{Key: string(iter.Key()), Size: len(v)}
		if len(v) <= 100 && utf8.Valid(v) {
			e.Value = string(v)
		} else {
			e.Value = hex.EncodeToString(v[:min(50, len(v))]) + "..."
		}
		out = append(out, e)
	}
	return out, iter.Error()
}
