package storage

import (
	"encoding/json"
	"fmt"

	"github.com/sgawallet/sga-wallet/common/utils"
	prt "github.com/sgawallet/sga-wallet/protocol"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ConnectionStore persists the active connection set.
// conn:Family:Address = ChainConnection json
type ConnectionStore struct {
	db *leveldb.DB
}

func NewConnectionStore(db *leveldb.DB) *ConnectionStore {
	return &ConnectionStore{db: db}
}

func (p *ConnectionStore) Put(c prt.ChainConnection) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode connection: %w", err)
	}
	if err := p.db.Put(utils.GetConnectionKey(c.Family, c.Address), data, nil); err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}
	return nil
}

// Delete is idempotent.
func (p *ConnectionStore) Delete(family prt.Family, address string) error {
	if err := p.db.Delete(utils.GetConnectionKey(family, address), nil); err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	return nil
}

func (p *ConnectionStore) Get(family prt.Family, address string) (prt.ChainConnection, bool, error) {
	var c prt.ChainConnection
	data, err := p.db.Get(utils.GetConnectionKey(family, address), nil)
	if err == leveldb.ErrNotFound {
		return c, false, nil
	}
	if err != nil {
		return c, false, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, false, fmt.Errorf("failed to decode connection: %w", err)
	}
	return c, true, nil
}

// List returns stored connections of one family, or all when family is empty.
// Undecodable entries are skipped and reported in the error slice.
func (p *ConnectionStore) List(family prt.Family) ([]prt.ChainConnection, []error) {
	iter := p.db.NewIterator(util.BytesPrefix(utils.GetConnectionPrefix(family)), nil)
	defer iter.Release()

	var out []prt.ChainConnection
	var errs []error
	for iter.Next() {
		var c prt.ChainConnection
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", iter.Key(), err))
			continue
		}
		out = append(out, c)
	}
	if err := iter.Error(); err != nil {
		errs = append(errs, err)
	}
	return out, errs
}
