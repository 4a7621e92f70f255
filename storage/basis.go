package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sgawallet/sga-wallet/common/utils"
	prt "github.com/sgawallet/sga-wallet/protocol"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// BasisBook records what the owner paid for a holding, in fiat.
// basis:Family:Address:SYMBOL = decimal string
type BasisBook struct {
	db *leveldb.DB
}

func NewBasisBook(db *leveldb.DB) *BasisBook {
	return &BasisBook{db: db}
}

func (p *BasisBook) Set(family prt.Family, address, symbol string, cost float64) error {
	if cost < 0 {
		return fmt.Errorf("cost basis must be non-negative, got %v", cost)
	}
	v := strconv.FormatFloat(cost, 'f', -1, 64)
	return p.db.Put(utils.GetCostBasisKey(family, address, symbol), []byte(v), nil)
}

func (p *BasisBook) Delete(family prt.Family, address, symbol string) error {
	return p.db.Delete(utils.GetCostBasisKey(family, address, symbol), nil)
}

// ForOwner maps upper-cased symbol to cost basis.
func (p *BasisBook) ForOwner(family prt.Family, address string) (map[string]float64, error) {
	prefix := utils.GetCostBasisPrefix(family, address)
	iter := p.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	out := make(map[string]float64)
	for iter.Next() {
		symbol := strings.TrimPrefix(string(iter.Key()), string(prefix))
		v, err := strconv.ParseFloat(string(iter.Value()), 64)
		if err != nil {
			continue
		}
		out[symbol] = v
	}
	return out, iter.Error()
}

// DeleteOwner drops every entry of one connection.
func (p *BasisBook) DeleteOwner(family prt.Family, address string) error {
	iter := p.db.NewIterator(util.BytesPrefix(utils.GetCostBasisPrefix(family, address)), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return err
	}
	return p.db.Write(batch, nil)
}
