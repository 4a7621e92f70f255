package storage

import (
	"fmt"
	"path/filepath"

	log "github.com/sgawallet/sga-wallet/common/logger"
	"github.com/sgawallet/sga-wallet/common/utils"
	"github.com/sgawallet/sga-wallet/config"
	prt "github.com/sgawallet/sga-wallet/protocol"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

const dbName = "sga-wallet.db"

func InitDB(cfg *config.Config) (*leveldb.DB, error) {
	dbPath := filepath.Join(cfg.DB.Path, dbName)

	// Create DB directory if it does not exist
	db, err := leveldb.OpenFile(dbPath, nil)
	if errors.IsCorrupted(err) {
		log.Warn("db corrupted, recovering: ", dbPath)
		db, err = leveldb.RecoverFile(dbPath, nil)
	}
	if err != nil {
		log.Error("Failed to open db: ", err)
		return nil, err
	}
	if err := checkSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("Successfully opened db: ", dbPath)
	return db, nil
}

// OpenMemDB opens a throwaway in-memory database.
func OpenMemDB() (*leveldb.DB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	if err := checkSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// checkSchema stamps a fresh db and refuses one written by an unknown schema.
func checkSchema(db *leveldb.DB) error {
	v, err := db.Get(utils.GetSchemaKey(), nil)
	if err == leveldb.ErrNotFound {
		return db.Put(utils.GetSchemaKey(), []byte(prt.SchemaVersion), nil)
	}
	if err != nil {
		return err
	}
	if string(v) != prt.SchemaVersion {
		return fmt.Errorf("unsupported db schema %q (want %q)", v, prt.SchemaVersion)
	}
	return nil
}
